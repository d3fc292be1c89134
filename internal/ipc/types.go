package ipc

import (
	"time"

	"spool/internal/queue"
)

// JobItem is the wire representation of a queue job.
type JobItem struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	Progress     float64   `json:"progress"`
	Speed        string    `json:"speed"`
	ETA          string    `json:"eta"`
	Filename     string    `json:"filename"`
	ErrorMessage string    `json:"error_message"`
	UserID       string    `json:"user_id"`
	InLibrary    bool      `json:"in_library"`
	InDownloads  bool      `json:"in_downloads"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromJob converts a queue job into its wire representation.
func FromJob(job *queue.Job) JobItem {
	if job == nil {
		return JobItem{}
	}
	return JobItem{
		ID:           job.ID,
		URL:          job.URL,
		Title:        job.Title,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Speed:        job.Speed,
		ETA:          job.ETA,
		Filename:     job.Filename,
		ErrorMessage: job.ErrorMessage,
		UserID:       job.UserID,
		InLibrary:    job.InLibrary,
		InDownloads:  job.InDownloads,
		EnqueuedAt:   job.EnqueuedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// AddRequest enqueues a new download job.
type AddRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Format   string `json:"format"`
	UserID   string `json:"user_id"`
	Detected bool   `json:"detected"`
}

// AddResponse returns the id assigned to the new job.
type AddResponse struct {
	ID string `json:"id"`
}

// QueueListRequest filters queue listing by user and status.
type QueueListRequest struct {
	UserID   string   `json:"user_id"`
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []JobItem `json:"items"`
}

// QueueDescribeRequest fetches a single job by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single job.
type QueueDescribeResponse struct {
	Item JobItem `json:"item"`
}

// StartRequest schedules a queued job.
type StartRequest struct {
	ID string `json:"id"`
}

// StartResponse indicates whether the job was scheduled.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StartQueuedRequest schedules every queued job for a user.
type StartQueuedRequest struct {
	UserID string `json:"user_id"`
}

// StartQueuedResponse reports how many jobs were scheduled.
type StartQueuedResponse struct {
	Started int `json:"started"`
}

// PromoteRequest moves a detected job into the queue.
type PromoteRequest struct {
	ID        string `json:"id"`
	AutoStart bool   `json:"auto_start"`
}

// PromoteResponse indicates whether the job was promoted.
type PromoteResponse struct {
	Promoted bool `json:"promoted"`
}

// CancelRequest cancels an active job.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse indicates whether the cancel was applied.
type CancelResponse struct {
	Canceled bool `json:"canceled"`
}

// RemoveRequest removes a job and its downloaded file.
type RemoveRequest struct {
	ID string `json:"id"`
}

// RemoveResponse indicates whether the job was removed.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearCompletedRequest removes completed jobs.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed jobs.
type QueueClearCompletedResponse struct {
	Removed int `json:"removed"`
}

// QueueClearFailedRequest removes failed jobs.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed jobs.
type QueueClearFailedResponse struct {
	Removed int `json:"removed"`
}

// ReloadRequest reconciles the in-memory registry against the store.
type ReloadRequest struct {
	UserID string `json:"user_id"`
}

// ReloadResponse acknowledges a reconcile run.
type ReloadResponse struct {
	Reloaded bool `json:"reloaded"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	QueueStats  map[string]int `json:"queue_stats"`
	QueueDBPath string         `json:"queue_db_path"`
	SocketPath  string         `json:"socket_path"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
