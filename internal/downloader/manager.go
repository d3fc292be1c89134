package downloader

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/ytdlp"
)

// Manager coordinates the full job lifecycle. It owns the registry and the
// permit pool; the store, extraction client, and notification collaborators
// are injected.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	client   ytdlp.Client
	hub      *notifications.Hub
	notifier notifications.Service
	logger   *slog.Logger

	registry *Registry
	permits  chan struct{}
	chain    []ytdlp.Variant
	floor    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	procMu sync.Mutex
	procs  map[string]context.CancelFunc
}

// New builds a manager and rebuilds the registry from the store so queued
// and terminal jobs survive a restart.
func New(cfg *config.Config, store *queue.Store, client ytdlp.Client, hub *notifications.Hub, notifier notifications.Service, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if client == nil {
		return nil, errors.New("extraction client is required")
	}
	if hub == nil {
		hub = notifications.NewHub(cfg.Notifications.EventBuffer)
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	maxConcurrent := cfg.Downloader.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	floor := cfg.Downloader.ResolutionFloor
	if floor <= 0 {
		floor = 720
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		store:    store,
		client:   client,
		hub:      hub,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "downloader"),
		registry: NewRegistry(),
		permits:  make(chan struct{}, maxConcurrent),
		chain:    ytdlp.ChainFromNames(cfg.Downloader.ClientChain),
		floor:    floor,
		ctx:      ctx,
		cancel:   cancel,
		procs:    make(map[string]context.CancelFunc),
	}

	jobs, err := store.List(context.Background(), queue.ListFilter{})
	if err != nil {
		cancel()
		return nil, err
	}
	for _, job := range jobs {
		m.registry.Put(job)
	}
	return m, nil
}

// Hub exposes the event hub so consumers can subscribe to progress events.
func (m *Manager) Hub() *notifications.Hub {
	return m.hub
}

// Stats returns the per-status job counts held in the registry.
func (m *Manager) Stats() map[queue.Status]int {
	stats := make(map[queue.Status]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		if n := m.registry.CountByStatus(status); n > 0 {
			stats[status] = n
		}
	}
	return stats
}

// StorePath returns the backing database path.
func (m *Manager) StorePath() string {
	return m.store.Path()
}

// LogPath returns the daemon log file, or "" when file logging is disabled.
func (m *Manager) LogPath() string {
	return logging.FilePath(m.cfg)
}

// TestNotification sends a test push through the configured notifier.
func (m *Manager) TestNotification(ctx context.Context) error {
	return m.notifier.TestNotification(ctx)
}

// Close stops admitting work and waits for in-flight workers to finish.
// Terminal writes still land because persistence does not use the manager
// context.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// EnqueueRequest describes a job to add to the queue.
type EnqueueRequest struct {
	URL        string
	FormatSpec string
	Title      string
	UserID     string
	Thumbnail  string
	SubID      string
	// Detected enqueues the job outside the scheduler; it holds no permit
	// until explicitly promoted.
	Detected bool
}

// Enqueue inserts a new job into registry and store and returns its id.
// Queued jobs start automatically when auto_start_queue is enabled.
func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return "", errors.New("url required")
	}

	status := queue.StatusQueued
	if req.Detected {
		status = queue.StatusDetected
	}
	job := &queue.Job{
		ID:          uuid.NewString(),
		URL:         url,
		Title:       strings.TrimSpace(req.Title),
		FormatID:    strings.TrimSpace(req.FormatSpec),
		Status:      status,
		UserID:      req.UserID,
		Thumbnail:   req.Thumbnail,
		SubID:       req.SubID,
		InDownloads: true,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := m.store.Insert(ctx, job); err != nil {
		return "", err
	}
	m.registry.Put(job)
	m.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("url", url),
		logging.String("status", string(status)))

	if status == queue.StatusQueued && m.cfg.Downloader.AutoStartQueue {
		m.Start(job.ID)
	}
	return job.ID, nil
}

// Start schedules the job for download and returns immediately. The worker
// blocks on a concurrency permit, so at most max_concurrent jobs are in
// Downloading state at once.
func (m *Manager) Start(jobID string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(jobID)
	}()
}

// StartQueued schedules every job currently in Queued state, optionally
// scoped to one user, and returns how many it scheduled.
func (m *Manager) StartQueued(userID string) int {
	started := 0
	for _, job := range m.registry.Snapshot(userID) {
		if job.Status == queue.StatusQueued {
			m.Start(job.ID)
			started++
		}
	}
	return started
}

// PromoteDetected moves a Detected job into the queue. With autoStart the
// job is scheduled immediately.
func (m *Manager) PromoteDetected(ctx context.Context, jobID string, autoStart bool) bool {
	job, ok := m.transition(ctx, jobID, queue.StatusQueued, queue.StatusUpdate{})
	if !ok {
		return false
	}
	m.emit(job)
	if autoStart {
		m.Start(jobID)
	}
	return true
}

// ListQueue returns registry snapshots ordered newest first.
func (m *Manager) ListQueue(userID string) []*queue.Job {
	return m.registry.Snapshot(userID)
}

// GetJob returns a copy of one job from the registry.
func (m *Manager) GetJob(jobID string) (*queue.Job, bool) {
	return m.registry.Get(jobID)
}

// ClearCompleted removes all completed jobs from store and registry.
func (m *Manager) ClearCompleted(ctx context.Context) (int, error) {
	ids, err := m.store.ClearCompleted(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.registry.Delete(id)
	}
	return len(ids), nil
}

// ClearFailed removes all errored jobs from store and registry.
func (m *Manager) ClearFailed(ctx context.Context) (int, error) {
	ids, err := m.store.ClearFailed(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.registry.Delete(id)
	}
	return len(ids), nil
}

// run is the per-job worker body: acquire a permit, re-check the job still
// wants to run, execute the fallback chain, write the terminal state.
func (m *Manager) run(jobID string) {
	select {
	case m.permits <- struct{}{}:
	case <-m.ctx.Done():
		return
	}
	defer func() { <-m.permits }()

	// The job may have been removed or canceled while waiting for the
	// permit. Abort silently in both cases.
	job, ok := m.registry.Get(jobID)
	if !ok || job.Status != queue.StatusQueued {
		return
	}

	// Register the cancel hook before going Downloading so a cancel racing
	// the transition always finds a proc to terminate.
	ctx, cancelAttempts := context.WithCancel(m.ctx)
	m.registerProc(jobID, cancelAttempts)

	job, ok = m.transition(context.Background(), jobID, queue.StatusDownloading, queue.StatusUpdate{})
	if !ok {
		m.unregisterProc(jobID)
		cancelAttempts()
		return
	}
	m.emit(job)

	outcome := m.runFallback(ctx, job)
	m.unregisterProc(jobID)
	cancelAttempts()

	if ctx.Err() != nil && outcome.result == nil {
		// Canceled mid-flight; the cancellation path owns the terminal
		// write.
		return
	}

	if outcome.result != nil {
		m.finishSuccess(jobID, outcome.result)
		return
	}
	m.finishFailure(jobID, job.URL, outcome.lastError())
}

func (m *Manager) finishSuccess(jobID string, result *ytdlp.DownloadResult) {
	filename := filepath.Base(result.FilePath)
	hundred := 100.0
	job, ok := m.transition(context.Background(), jobID, queue.StatusCompleted, queue.StatusUpdate{
		Progress: &hundred,
		Filename: &filename,
	})
	if !ok {
		return
	}

	viewCount := int64(0)
	meta := queue.Metadata{
		ViewCount:   &viewCount,
		Description: result.Description,
		Duration:    result.DurationDisplay,
		UploadDate:  result.UploadDate,
	}
	if err := m.store.UpdateMetadata(context.Background(), jobID, meta); err != nil {
		m.logger.Warn("failed to persist job metadata",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
	}

	m.logger.Info("download completed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("filename", filename))
	m.emit(job)
	if err := m.notifier.NotifyDownloadCompleted(context.Background(), job.Title, filename); err != nil {
		m.logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (m *Manager) finishFailure(jobID, url string, lastErr error) {
	category, message := Classify(lastErr, url)
	zero := 0.0
	job, ok := m.transition(context.Background(), jobID, queue.StatusError, queue.StatusUpdate{
		Progress:     &zero,
		ErrorMessage: &message,
	})
	if !ok {
		// A cancellation won the race; its state stands.
		return
	}

	m.logger.Error("download failed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("category", string(category)),
		logging.String(logging.FieldErrorHint, message))
	m.emit(job)
	if err := m.notifier.NotifyDownloadFailed(context.Background(), job.Title, message); err != nil {
		m.logger.Warn("failure notification failed", logging.Error(err))
	}
}

// transition applies a validated state change to the registry and persists
// it. The registry update is the atomic decision point: once a terminal
// state is written there, a racing transition fails and leaves it intact.
func (m *Manager) transition(ctx context.Context, jobID string, next queue.Status, update queue.StatusUpdate) (*queue.Job, bool) {
	job, ok := m.registry.Update(jobID, func(j *queue.Job) bool {
		if !j.Status.CanTransition(next) {
			return false
		}
		j.Status = next
		if update.Progress != nil {
			j.Progress = *update.Progress
		}
		if update.ErrorMessage != nil {
			j.ErrorMessage = *update.ErrorMessage
		}
		if update.Speed != nil {
			j.Speed = *update.Speed
		}
		if update.ETA != nil {
			j.ETA = *update.ETA
		}
		if update.Filename != nil {
			j.Filename = *update.Filename
		}
		return true
	})
	if !ok {
		return nil, false
	}
	if err := m.store.UpdateStatus(ctx, jobID, next, update); err != nil {
		m.logger.Warn("failed to persist status transition",
			logging.String(logging.FieldJobID, jobID),
			logging.String("status", string(next)),
			logging.Error(err))
	}
	return job, true
}

func (m *Manager) emit(job *queue.Job) {
	if job == nil {
		return
	}
	m.hub.Publish(notifications.ProgressEvent{
		Type:     notifications.EventTypeProgress,
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Speed:    job.Speed,
		ETA:      job.ETA,
		Filename: job.Filename,
		Title:    job.Title,
	})
}

func (m *Manager) registerProc(jobID string, cancel context.CancelFunc) {
	m.procMu.Lock()
	defer m.procMu.Unlock()
	m.procs[jobID] = cancel
}

func (m *Manager) unregisterProc(jobID string) {
	m.procMu.Lock()
	defer m.procMu.Unlock()
	delete(m.procs, jobID)
}

// terminateProc requests termination of the job's in-flight attempt, if any.
func (m *Manager) terminateProc(jobID string) {
	m.procMu.Lock()
	cancel, ok := m.procs[jobID]
	delete(m.procs, jobID)
	m.procMu.Unlock()
	if ok {
		cancel()
	}
}
