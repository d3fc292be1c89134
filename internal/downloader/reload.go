package downloader

import (
	"context"

	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/queue"
)

// Reload re-derives registry truth from the store, optionally scoped to one
// user: entries missing from the store are dropped, store rows unknown to the
// registry are adopted, surviving entries take their library flags and
// filename from the store row, and the containment rule is re-applied on
// top. A file that does not resolve under the downloads root is not a
// download, no matter what the store says.
func (m *Manager) Reload(ctx context.Context, userID string) error {
	rows, err := m.store.List(ctx, queue.ListFilter{UserID: userID})
	if err != nil {
		return err
	}

	present := make(map[string]*queue.Job, len(rows))
	for _, row := range rows {
		present[row.ID] = row
	}

	for _, id := range m.registry.IDs() {
		job, ok := m.registry.Get(id)
		if !ok {
			continue
		}
		if userID != "" && job.UserID != userID {
			continue
		}
		if _, exists := present[id]; !exists {
			m.registry.Delete(id)
			m.logger.Info("dropped job missing from store",
				logging.String(logging.FieldJobID, id))
		}
	}

	root := m.cfg.Paths.DownloadDir
	for id, row := range present {
		_, ok := m.registry.Update(id, func(j *queue.Job) bool {
			j.InLibrary = row.InLibrary
			j.InDownloads = row.InDownloads
			j.Filename = row.Filename
			if j.Filename != "" && !fileutil.Contained(root, j.Filename) {
				j.InDownloads = false
			}
			return true
		})
		if ok {
			continue
		}
		// Row written by another process; adopt it.
		adopted := row.Clone()
		if adopted.Filename != "" && !fileutil.Contained(root, adopted.Filename) {
			adopted.InDownloads = false
		}
		m.registry.Put(adopted)
		m.logger.Info("adopted job from store",
			logging.String(logging.FieldJobID, id))
	}
	return nil
}
