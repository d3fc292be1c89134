package queue_test

import (
	"testing"
	"time"

	"spool/internal/queue"
)

func TestParseStatus(t *testing.T) {
	for _, status := range queue.AllStatuses() {
		parsed, ok := queue.ParseStatus(string(status))
		if !ok {
			t.Fatalf("ParseStatus(%s) rejected a known status", status)
		}
		if parsed != status {
			t.Fatalf("ParseStatus(%s) = %s", status, parsed)
		}
	}
	if parsed, ok := queue.ParseStatus(" Queued "); !ok || parsed != queue.StatusQueued {
		t.Fatalf("ParseStatus should normalize case and whitespace, got %q ok=%v", parsed, ok)
	}
	if _, ok := queue.ParseStatus("paused"); ok {
		t.Fatal("expected rejection for unknown status")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to queue.Status
		ok       bool
	}{
		{queue.StatusDetected, queue.StatusQueued, true},
		{queue.StatusQueued, queue.StatusDownloading, true},
		{queue.StatusQueued, queue.StatusCanceled, true},
		{queue.StatusDownloading, queue.StatusCompleted, true},
		{queue.StatusDownloading, queue.StatusCanceled, true},
		{queue.StatusDownloading, queue.StatusError, true},
		{queue.StatusCompleted, queue.StatusQueued, false},
		{queue.StatusCanceled, queue.StatusDownloading, false},
		{queue.StatusError, queue.StatusQueued, false},
		{queue.StatusDetected, queue.StatusDownloading, false},
		{queue.StatusDownloading, queue.StatusQueued, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s.CanTransition(%s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[queue.Status]bool{
		queue.StatusCompleted: true,
		queue.StatusCanceled:  true,
		queue.StatusError:     true,
	}
	for _, status := range queue.AllStatuses() {
		if got := status.IsTerminal(); got != terminal[status] {
			t.Errorf("%s.IsTerminal() = %v", status, got)
		}
	}
}

func TestJobClone(t *testing.T) {
	views := int64(99)
	played := time.Now().UTC()
	job := &queue.Job{
		ID:         "j1",
		URL:        "https://example.com/v",
		Status:     queue.StatusDownloading,
		ViewCount:  &views,
		LastPlayed: &played,
	}

	clone := job.Clone()
	if clone == job {
		t.Fatal("Clone returned the same pointer")
	}
	*clone.ViewCount = 1
	clone.Status = queue.StatusCompleted
	if *job.ViewCount != 99 || job.Status != queue.StatusDownloading {
		t.Fatal("Clone shares state with the original")
	}
}
