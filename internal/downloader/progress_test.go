package downloader

import (
	"context"
	"testing"

	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/testsupport"
	"spool/internal/ytdlp"
)

func TestNormalizePercent(t *testing.T) {
	cases := []struct {
		name   string
		sample ytdlp.ProgressSample
		want   float64
		has    bool
	}{
		{"byte ratio", ytdlp.ProgressSample{DownloadedBytes: 250, TotalBytes: 1000}, 25.0, true},
		{"byte ratio beats percent", ytdlp.ProgressSample{DownloadedBytes: 500, TotalBytes: 1000, HasPercent: true, Percent: 99}, 50.0, true},
		{"percent string", ytdlp.ProgressSample{HasPercent: true, Percent: 23.44}, 23.4, true},
		{"clamped high", ytdlp.ProgressSample{HasPercent: true, Percent: 120}, 100.0, true},
		{"clamped low", ytdlp.ProgressSample{HasPercent: true, Percent: -5}, 0.0, true},
		{"rounded", ytdlp.ProgressSample{DownloadedBytes: 1, TotalBytes: 3}, 33.3, true},
		{"absent", ytdlp.ProgressSample{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, has := normalizePercent(tc.sample)
			if has != tc.has || got != tc.want {
				t.Fatalf("normalizePercent = %v (has=%v), want %v (has=%v)", got, has, tc.want, tc.has)
			}
		})
	}
}

func TestNormalizeSpeed(t *testing.T) {
	if got := normalizeSpeed(ytdlp.ProgressSample{BytesPerSecond: 2 << 20}); got != "2.0 MiB/s" {
		t.Fatalf("byte rate: %q", got)
	}
	if got := normalizeSpeed(ytdlp.ProgressSample{SpeedText: "1.50MiB/s"}); got != "1.50MiB/s" {
		t.Fatalf("passthrough: %q", got)
	}
	if got := normalizeSpeed(ytdlp.ProgressSample{}); got != "" {
		t.Fatalf("empty: %q", got)
	}
}

func TestNormalizeETA(t *testing.T) {
	if got := normalizeETA(ytdlp.ProgressSample{ETASeconds: 3725}); got != "1:02:05" {
		t.Fatalf("hours: %q", got)
	}
	if got := normalizeETA(ytdlp.ProgressSample{ETASeconds: 125}); got != "02:05" {
		t.Fatalf("minutes: %q", got)
	}
	if got := normalizeETA(ytdlp.ProgressSample{ETAText: "00:35"}); got != "00:35" {
		t.Fatalf("passthrough: %q", got)
	}
}

func TestTrackerCheckpointsOnBoundaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newStubClient()
	mgr, err := New(cfg, store, client, notifications.NewHub(4), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "https://example.com/v", "Clip")
	if err := store.UpdateStatus(ctx, job.ID, queue.StatusDownloading, queue.StatusUpdate{}); err != nil {
		t.Fatal(err)
	}
	job.Status = queue.StatusDownloading
	mgr.registry.Put(job)

	tracker := mgr.newTracker(job.ID)
	tracker.observe(ytdlp.ProgressSample{HasPercent: true, Percent: 2})
	tracker.observe(ytdlp.ProgressSample{HasPercent: true, Percent: 4})

	row, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Progress != 2.0 {
		t.Fatalf("first sample in a bucket should checkpoint, got %v", row.Progress)
	}

	tracker.observe(ytdlp.ProgressSample{HasPercent: true, Percent: 7})
	row, err = store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Progress != 7.0 {
		t.Fatalf("boundary crossing should checkpoint, got %v", row.Progress)
	}

	// Registry always sees the latest sample even between checkpoints.
	current, _ := mgr.GetJob(job.ID)
	if current.Progress != 7.0 {
		t.Fatalf("registry progress = %v", current.Progress)
	}
}

func TestFreshTrackerRecheckpointsLowerBucket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newStubClient()
	mgr, err := New(cfg, store, client, notifications.NewHub(4), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "https://example.com/v", "Clip")
	if err := store.UpdateStatus(ctx, job.ID, queue.StatusDownloading, queue.StatusUpdate{}); err != nil {
		t.Fatal(err)
	}
	job.Status = queue.StatusDownloading
	mgr.registry.Put(job)

	first := mgr.newTracker(job.ID)
	first.observe(ytdlp.ProgressSample{HasPercent: true, Percent: 60})

	row, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Progress != 60.0 {
		t.Fatalf("first attempt should checkpoint, got %v", row.Progress)
	}

	// Each attempt gets a fresh tracker, so a restart from a lower percent
	// must checkpoint again even though its bucket is below the old one.
	second := mgr.newTracker(job.ID)
	second.observe(ytdlp.ProgressSample{HasPercent: true, Percent: 10})

	row, err = store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Progress != 10.0 {
		t.Fatalf("restarted attempt should checkpoint its lower percent, got %v", row.Progress)
	}
	current, _ := mgr.GetJob(job.ID)
	if current.Progress != 10.0 {
		t.Fatalf("registry should drop to the restarted percent, got %v", current.Progress)
	}
}

func TestTrackerIgnoresSamplesAfterTerminalState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newStubClient()
	mgr, err := New(cfg, store, client, notifications.NewHub(4), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()

	job := testsupport.NewJob(t, store, "https://example.com/v", "Clip")
	job.Status = queue.StatusCanceled
	mgr.registry.Put(job)

	tracker := mgr.newTracker(job.ID)
	tracker.observe(ytdlp.ProgressSample{HasPercent: true, Percent: 50})

	current, _ := mgr.GetJob(job.ID)
	if current.Progress != 0 {
		t.Fatalf("terminal job must not take progress updates: %v", current.Progress)
	}
}
