package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates and persists a queued job for tests.
func NewJob(t testing.TB, store *queue.Store, url, title string) *queue.Job {
	t.Helper()

	job := &queue.Job{
		ID:          uuid.NewString(),
		URL:         url,
		Title:       title,
		Status:      queue.StatusQueued,
		InDownloads: true,
	}
	if err := store.Insert(context.Background(), job); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return job
}
