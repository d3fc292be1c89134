// Package deps reports availability of the external tools spool shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"spool/internal/config"
)

// Requirement defines an external dependency spool relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Defaults returns the requirements for a configured spool daemon. The
// extractor binary is mandatory; ffmpeg is only exercised when the extractor
// has to merge separate audio and video streams, so it stays optional.
func Defaults(cfg *config.Config) []Requirement {
	extractor := "yt-dlp"
	if cfg != nil {
		extractor = cfg.ExtractorBinary()
	}
	return []Requirement{
		{
			Name:        "Extractor",
			Command:     extractor,
			Description: "Probes sources and downloads media",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Merges separate audio and video streams",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
