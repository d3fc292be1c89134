package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"spool/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert persists a new job row.
func (s *Store) Insert(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	now := time.Now().UTC()
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = now
	}
	job.UpdatedAt = now

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, url, title, format_id, status, progress, speed, eta, filename,
            error, user_id, thumbnail, sub_id, view_count, description,
            duration, upload_date, last_played, is_in_library, is_in_downloads,
            enqueued_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.URL,
		nullableString(job.Title),
		nullableString(job.FormatID),
		job.Status,
		job.Progress,
		nullableString(job.Speed),
		nullableString(job.ETA),
		nullableString(job.Filename),
		nullableString(job.ErrorMessage),
		nullableString(job.UserID),
		nullableString(job.Thumbnail),
		nullableString(job.SubID),
		nullableInt64(job.ViewCount),
		nullableString(job.Description),
		nullableString(job.Duration),
		nullableString(job.UploadDate),
		nullableTime(job.LastPlayed),
		boolToInt(job.InLibrary),
		boolToInt(job.InDownloads),
		job.EnqueuedAt.Format(time.RFC3339Nano),
		job.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier. Returns nil when the row is absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	UserID        string
	OnlyDownloads bool
}

// List returns jobs matching the filter ordered by enqueue time, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.OnlyDownloads {
		conditions = append(conditions, "is_in_downloads = 1")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY enqueued_at DESC"

	return s.queryJobs(ctx, query, args...)
}

// ListByIDs returns the jobs matching the given identifiers.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]*Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	return s.queryJobs(ctx, query, args...)
}

// ListLibrary returns library jobs, optionally scoped to one user.
func (s *Store) ListLibrary(ctx context.Context, userID string) ([]*Job, error) {
	if userID != "" {
		return s.queryJobs(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? AND is_in_library = 1 ORDER BY enqueued_at DESC`,
			userID)
	}
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE is_in_library = 1 ORDER BY enqueued_at DESC`)
}

// StatusUpdate carries the optional fields of an UpdateStatus call. Nil
// pointers leave the stored value untouched.
type StatusUpdate struct {
	Progress     *float64
	ErrorMessage *string
	Speed        *string
	ETA          *string
	Filename     *string
}

// UpdateStatus persists a status transition plus any provided progress fields.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, update StatusUpdate) error {
	query := "UPDATE jobs SET status = ?"
	args := []any{status}
	if update.Progress != nil {
		query += ", progress = ?"
		args = append(args, *update.Progress)
	}
	if update.ErrorMessage != nil {
		query += ", error = ?"
		args = append(args, *update.ErrorMessage)
	}
	if update.Speed != nil {
		query += ", speed = ?"
		args = append(args, *update.Speed)
	}
	if update.ETA != nil {
		query += ", eta = ?"
		args = append(args, *update.ETA)
	}
	if update.Filename != nil {
		query += ", filename = ?"
		args = append(args, *update.Filename)
	}
	query += ", updated_at = ? WHERE id = ?"
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)

	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// UpdateLibraryFlags sets membership flags for a batch of jobs. A nil
// inDownloads leaves that flag untouched.
func (s *Store) UpdateLibraryFlags(ctx context.Context, ids []string, inLibrary bool, inDownloads *bool) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	query := `UPDATE jobs SET is_in_library = ?`
	args = append(args, boolToInt(inLibrary))
	if inDownloads != nil {
		query += `, is_in_downloads = ?`
		args = append(args, boolToInt(*inDownloads))
	}
	query += `, updated_at = ? WHERE id IN (` + placeholders + `)`
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("update library flags: %w", err)
	}
	return nil
}

// Metadata carries post-completion descriptive fields.
type Metadata struct {
	ViewCount   *int64
	Description string
	Duration    string
	UploadDate  string
}

// UpdateMetadata persists descriptive metadata captured after a download.
func (s *Store) UpdateMetadata(ctx context.Context, id string, meta Metadata) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET view_count = ?, description = ?, duration = ?, upload_date = ?, updated_at = ? WHERE id = ?`,
		nullableInt64(meta.ViewCount),
		nullableString(meta.Description),
		nullableString(meta.Duration),
		nullableString(meta.UploadDate),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job metadata: %w", err)
	}
	return nil
}

// UpdateFilename rewrites the stored filename for a job.
func (s *Store) UpdateFilename(ctx context.Context, id, filename string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET filename = ?, updated_at = ? WHERE id = ?`,
		nullableString(filename),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job filename: %w", err)
	}
	return nil
}

// UpdateLastPlayed stamps the job's last playback time to now.
func (s *Store) UpdateLastPlayed(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_played = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("update last played: %w", err)
	}
	return nil
}

// Delete removes a job row. Returns true when a row was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes completed jobs and returns their ids.
func (s *Store) ClearCompleted(ctx context.Context) ([]string, error) {
	return s.clearByStatus(ctx, StatusCompleted)
}

// ClearFailed removes errored jobs and returns their ids.
func (s *Store) ClearFailed(ctx context.Context) ([]string, error) {
	return s.clearByStatus(ctx, StatusError)
}

func (s *Store) clearByStatus(ctx context.Context, status Status) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM jobs WHERE status = ?`, status)
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, status); err != nil {
		return nil, fmt.Errorf("clear %s jobs: %w", status, err)
	}
	return ids, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
