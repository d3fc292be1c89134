package fileutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveUnder resolves name against root: an absolute name is returned
// unchanged, a relative one is joined under root. The result is cleaned but
// not required to exist.
func ResolveUnder(root, name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(root, name)
}

// Contained reports whether name, resolved to an absolute path, lies under
// root. Resolution failures are treated conservatively as not contained.
func Contained(root, name string) bool {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(root) == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absName, err := filepath.Abs(ResolveUnder(absRoot, name))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absName)
	if err != nil {
		return false
	}
	if rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
