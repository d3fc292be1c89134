package downloader

import (
	"context"

	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/queue"
)

// Cancel requests termination of a job's in-flight work and marks it
// Canceled. Returns false when the job is unknown or already terminal; a
// terminal state written by a racing worker stands.
func (m *Manager) Cancel(ctx context.Context, jobID string) bool {
	job, ok := m.registry.Get(jobID)
	if !ok || job.Status.IsTerminal() {
		return false
	}

	m.terminateProc(jobID)

	message := queue.CancelReason
	zero := 0.0
	job, ok = m.transition(ctx, jobID, queue.StatusCanceled, queue.StatusUpdate{
		Progress:     &zero,
		ErrorMessage: &message,
	})
	if !ok {
		return false
	}

	m.logger.Info("job canceled", logging.String(logging.FieldJobID, jobID))
	m.emit(job)
	if err := m.notifier.NotifyDownloadCanceled(context.Background(), job.Title); err != nil {
		m.logger.Warn("cancellation notification failed", logging.Error(err))
	}
	return true
}

// Remove cancels any active work, deletes the backing file when the system
// owns it, and drops the job from registry and store. File cleanup is best
// effort; removal reports success once both deletes have been issued, and
// false only when neither registry nor store knows the job.
func (m *Manager) Remove(ctx context.Context, jobID string) bool {
	var filename string
	known := false
	if job, ok := m.registry.Get(jobID); ok {
		known = true
		filename = job.Filename
		if !job.Status.IsTerminal() {
			m.Cancel(ctx, jobID)
		}
	} else if row, err := m.store.GetByID(ctx, jobID); err == nil && row != nil {
		known = true
		filename = row.Filename
	}
	if !known {
		return false
	}

	if filename != "" {
		m.deleteOwnedFile(filename)
	}

	m.registry.Delete(jobID)
	if _, err := m.store.Delete(ctx, jobID); err != nil {
		m.logger.Warn("failed to delete job row",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
	}
	m.logger.Info("job removed", logging.String(logging.FieldJobID, jobID))
	return true
}

// deleteOwnedFile removes the backing file at its literal path and at its
// path joined under the downloads root, but only when the resolved path is
// contained in the root. Paths outside the root are never touched.
func (m *Manager) deleteOwnedFile(filename string) {
	root := m.cfg.Paths.DownloadDir
	seen := make(map[string]struct{}, 2)
	for _, candidate := range []string{filename, fileutil.ResolveUnder(root, filename)} {
		if candidate == "" {
			continue
		}
		if !fileutil.Contained(root, candidate) {
			continue
		}
		resolved := fileutil.ResolveUnder(root, candidate)
		if _, done := seen[resolved]; done {
			continue
		}
		seen[resolved] = struct{}{}
		if err := fileutil.RemoveIfExists(resolved); err != nil {
			m.logger.Warn("failed to delete file",
				logging.String("path", resolved), logging.Error(err))
		}
	}
}
