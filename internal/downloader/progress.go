package downloader

import (
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/ytdlp"
)

// checkpointStep bounds write amplification: the store is only touched when
// normalized percent moves into a new 5% bucket. The terminal flush in the
// worker is authoritative regardless of buckets.
const checkpointStep = 5.0

// tracker normalizes raw tool samples for one download attempt. Each
// fallback attempt gets a fresh tracker, so percent may legitimately reset
// toward zero on a variant switch while staying monotonic within the attempt.
type tracker struct {
	m          *Manager
	jobID      string
	lastBucket float64
}

func (m *Manager) newTracker(jobID string) *tracker {
	return &tracker{m: m, jobID: jobID, lastBucket: -1}
}

// observe ingests one raw sample: normalize, update the registry, emit an
// event, and checkpoint the store on 5% boundaries.
func (t *tracker) observe(sample ytdlp.ProgressSample) {
	percent, hasPercent := normalizePercent(sample)
	speed := normalizeSpeed(sample)
	eta := normalizeETA(sample)

	job, ok := t.m.registry.Update(t.jobID, func(j *queue.Job) bool {
		if j.Status != queue.StatusDownloading {
			return false
		}
		if hasPercent {
			j.Progress = percent
		}
		if speed != "" {
			j.Speed = speed
		}
		if eta != "" {
			j.ETA = eta
		}
		return true
	})
	if !ok {
		return
	}
	t.m.emit(job)

	if !hasPercent {
		return
	}
	bucket := math.Floor(percent / checkpointStep)
	if bucket == t.lastBucket {
		return
	}
	t.lastBucket = bucket
	update := queue.StatusUpdate{Progress: &percent}
	if err := t.m.store.UpdateStatus(context.Background(), t.jobID, queue.StatusDownloading, update); err != nil {
		t.m.logger.Warn("failed to checkpoint progress",
			logging.String(logging.FieldJobID, t.jobID), logging.Error(err))
	}
}

// normalizePercent prefers an exact byte ratio over the tool's formatted
// percent. The result is clamped to [0, 100] and rounded to one decimal.
func normalizePercent(sample ytdlp.ProgressSample) (float64, bool) {
	var percent float64
	switch {
	case sample.TotalBytes > 0 && sample.DownloadedBytes >= 0:
		percent = float64(sample.DownloadedBytes) / float64(sample.TotalBytes) * 100
	case sample.HasPercent:
		percent = sample.Percent
	default:
		return 0, false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return math.Round(percent*10) / 10, true
}

// normalizeSpeed converts a raw byte rate into a display string, or passes a
// preformatted one through.
func normalizeSpeed(sample ytdlp.ProgressSample) string {
	if sample.BytesPerSecond > 0 {
		return humanize.IBytes(uint64(sample.BytesPerSecond)) + "/s"
	}
	return sample.SpeedText
}

// normalizeETA formats a seconds count as H:MM:SS or MM:SS, or passes a
// preformatted string through.
func normalizeETA(sample ytdlp.ProgressSample) string {
	if sample.ETASeconds > 0 {
		seconds := sample.ETASeconds
		minutes := seconds / 60
		seconds %= 60
		hours := minutes / 60
		minutes %= 60
		if hours > 0 {
			return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
		}
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	}
	return sample.ETAText
}
