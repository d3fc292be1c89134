package downloader

import (
	"errors"
	"fmt"
	"strings"
)

// Category buckets a terminal download failure into a user-facing class.
type Category string

const (
	CategoryCookieOrAuth       Category = "cookie_or_auth_required"
	CategoryEmptyOrUnavailable Category = "empty_or_unavailable"
	CategoryResolutionTooLow   Category = "resolution_too_low"
	CategoryGeneric            Category = "generic"
)

// GateError marks a quality gate rejection: the probe succeeded but the best
// available resolution sits below the configured floor.
type GateError struct {
	MaxHeight int
	Floor     int
}

func (e *GateError) Error() string {
	return fmt.Sprintf("resolution too low (%dp < %dp)", e.MaxHeight, e.Floor)
}

// attemptStage labels where in the fallback loop an attempt failed.
type attemptStage string

const (
	stageProbe    attemptStage = "probe"
	stageGate     attemptStage = "quality_gate"
	stageDownload attemptStage = "download"
)

// attemptFailure records one failed client variant attempt. Failures are
// values inspected by the fallback loop, never raised control flow.
type attemptFailure struct {
	variant string
	stage   attemptStage
	err     error
}

func isYouTubeURL(url string) bool {
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}

// Classify turns the last recorded failure into a category and a user-facing
// message once every client variant is exhausted.
func Classify(err error, url string) (Category, string) {
	if err == nil {
		return CategoryGeneric, "Download failed for all clients."
	}

	var gate *GateError
	if errors.As(err, &gate) {
		return CategoryResolutionTooLow, fmt.Sprintf("Download failed: %s.", gate.Error())
	}

	text := err.Error()
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "empty"):
		if isYouTubeURL(url) {
			return CategoryEmptyOrUnavailable, "YouTube download failed. Please configure cookies in Settings (Cookies File Path or Browser Cookies)."
		}
		return CategoryEmptyOrUnavailable, "Download failed: The file is empty. The video may be restricted or unavailable."
	case strings.Contains(lower, "cookie"):
		return CategoryCookieOrAuth, "Authentication required. Please configure cookies in Settings."
	default:
		if idx := strings.LastIndex(text, "ERROR:"); idx != -1 {
			text = strings.TrimSpace(text[idx+len("ERROR:"):])
		}
		return CategoryGeneric, fmt.Sprintf("Download failed: %s", text)
	}
}
