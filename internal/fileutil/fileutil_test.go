package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContained(t *testing.T) {
	root := t.TempDir()

	cases := []struct {
		name string
		path string
		want bool
	}{
		{"relative inside", "video.mp4", true},
		{"nested relative", filepath.Join("sub", "video.mp4"), true},
		{"absolute inside", filepath.Join(root, "video.mp4"), true},
		{"absolute outside", filepath.Join(os.TempDir(), "elsewhere", "video.mp4"), false},
		{"escape via dotdot", filepath.Join("..", "video.mp4"), false},
		{"empty", "", false},
		{"root itself", root, false},
	}
	for _, tc := range cases {
		if got := Contained(root, tc.path); got != tc.want {
			t.Errorf("%s: Contained(%q, %q) = %v, want %v", tc.name, root, tc.path, got, tc.want)
		}
	}
}

func TestResolveUnder(t *testing.T) {
	root := t.TempDir()
	if got := ResolveUnder(root, "clip.mp4"); got != filepath.Join(root, "clip.mp4") {
		t.Fatalf("relative resolve: %q", got)
	}
	abs := filepath.Join(root, "clip.mp4")
	if got := ResolveUnder(root, abs); got != abs {
		t.Fatalf("absolute resolve: %q", got)
	}
	if got := ResolveUnder(root, ""); got != "" {
		t.Fatalf("empty resolve: %q", got)
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.mp4")
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file should be deleted")
	}
}
