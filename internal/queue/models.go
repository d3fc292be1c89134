package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a retrieval job.
type Status string

const (
	// StatusDetected marks a job discovered by a source watch but not yet
	// actioned. Detected jobs sit outside the scheduler until promoted.
	StatusDetected Status = "detected"
	// StatusQueued marks a job awaiting a concurrency permit.
	StatusQueued Status = "queued"
	// StatusDownloading marks a job actively attempting retrieval.
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusCanceled    Status = "canceled"
	StatusError       Status = "error"
)

// CancelReason is the error message set when a user cancels a job.
const CancelReason = "Cancelled by user"

var allStatuses = []Status{
	StatusDetected,
	StatusQueued,
	StatusDownloading,
	StatusCompleted,
	StatusCanceled,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// validTransitions encodes the job state machine. Terminal states have no
// outgoing edges; a retried download is a fresh job with a fresh id.
var validTransitions = map[Status][]Status{
	StatusDetected:    {StatusQueued},
	StatusQueued:      {StatusDownloading, StatusCanceled},
	StatusDownloading: {StatusCompleted, StatusError, StatusCanceled},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job represents a retrieval job persisted in SQLite and mirrored in the
// in-memory registry while the process runs.
type Job struct {
	ID           string
	URL          string
	Title        string
	FormatID     string
	Status       Status
	Progress     float64
	Speed        string
	ETA          string
	Filename     string
	ErrorMessage string
	UserID       string
	Thumbnail    string
	SubID        string

	// Post-completion metadata.
	ViewCount   *int64
	Description string
	Duration    string
	UploadDate  string
	LastPlayed  *time.Time

	InLibrary   bool
	InDownloads bool

	EnqueuedAt time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the job is pre-terminal.
func (j *Job) IsActive() bool {
	return !j.Status.IsTerminal()
}

// Clone returns a deep copy so registry snapshots cannot be mutated by callers.
func (j *Job) Clone() *Job {
	cp := *j
	if j.ViewCount != nil {
		v := *j.ViewCount
		cp.ViewCount = &v
	}
	if j.LastPlayed != nil {
		t := *j.LastPlayed
		cp.LastPlayed = &t
	}
	return &cp
}
