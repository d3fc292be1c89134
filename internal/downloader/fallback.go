package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/ytdlp"
)

// attemptOutcome is the aggregate result of one fallback run: either a
// successful download or the trail of per-variant failures.
type attemptOutcome struct {
	result   *ytdlp.DownloadResult
	failures []attemptFailure
}

func (o attemptOutcome) lastError() error {
	if len(o.failures) == 0 {
		return nil
	}
	return o.failures[len(o.failures)-1].err
}

// runFallback tries each client variant in order until one download
// succeeds. Probe failures, quality gate rejections, and download failures
// all advance to the next variant; first success wins. A canceled context
// stops the loop immediately.
func (m *Manager) runFallback(ctx context.Context, job *queue.Job) attemptOutcome {
	var outcome attemptOutcome
	for _, variant := range m.chain {
		if ctx.Err() != nil {
			return outcome
		}

		m.logger.Info("attempting download",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldClient, variant.Name))

		result, stage, err := m.attempt(ctx, job, variant)
		if err == nil {
			outcome.result = result
			m.logger.Info("attempt succeeded",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldClient, variant.Name))
			return outcome
		}

		outcome.failures = append(outcome.failures, attemptFailure{
			variant: variant.Name,
			stage:   stage,
			err:     err,
		})
		m.logger.Warn("attempt failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldClient, variant.Name),
			logging.String("stage", string(stage)),
			logging.Error(err))
	}
	return outcome
}

// attempt runs probe, quality gate, and download for one variant. A panic
// inside the attempt is converted into a download failure so one bad attempt
// cannot take the worker down.
func (m *Manager) attempt(ctx context.Context, job *queue.Job, variant ytdlp.Variant) (result *ytdlp.DownloadResult, stage attemptStage, err error) {
	stage = stageProbe
	defer func() {
		if r := recover(); r != nil {
			result = nil
			stage = stageDownload
			err = fmt.Errorf("attempt panicked: %v", r)
		}
	}()

	probe, err := m.client.Probe(ctx, job.URL, variant)
	if err != nil {
		return nil, stageProbe, err
	}
	if probe == nil || len(probe.Streams) == 0 {
		return nil, stageProbe, errors.New("probe returned no streams")
	}

	if max := ytdlp.MaxHeight(probe.Streams); max < m.floor {
		return nil, stageGate, &GateError{MaxHeight: max, Floor: m.floor}
	}

	stage = stageDownload
	tracker := m.newTracker(job.ID)
	req := ytdlp.DownloadRequest{
		URL:            job.URL,
		FormatSpec:     m.resolveFormatSpec(job),
		OutputTemplate: filepath.Join(m.cfg.Paths.DownloadDir, m.cfg.Downloader.FilenameTemplate),
		Variant:        variant,
	}
	result, err = m.client.Download(ctx, req, tracker.observe)
	if err != nil {
		return nil, stageDownload, err
	}
	return result, stageDownload, nil
}

// resolveFormatSpec honors the job's own format first, then the configured
// default, then the per-host builtin default.
func (m *Manager) resolveFormatSpec(job *queue.Job) string {
	if spec := strings.TrimSpace(job.FormatID); spec != "" {
		return spec
	}
	if spec := strings.TrimSpace(m.cfg.Downloader.DefaultFormat); spec != "" {
		return spec
	}
	return ytdlp.DefaultFormatSpec(job.URL)
}
