package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"spool/internal/deps"
	"spool/internal/downloader"
	"spool/internal/ipc"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/ytdlp"
)

const lockFileName = "spool.lock"

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the download daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(ctx)
		},
	}
}

func runDaemonProcess(ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lockPath := filepath.Join(cfg.Paths.DataDir, lockFileName)
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another spool daemon holds %s", lockPath)
	}
	defer lock.Unlock()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "spool.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	for _, status := range deps.CheckBinaries(deps.Defaults(cfg)) {
		if status.Available {
			continue
		}
		if status.Optional {
			logger.Warn("optional dependency missing",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail))
			continue
		}
		return fmt.Errorf("required dependency %s unavailable: %s", status.Name, status.Detail)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	extractor := ytdlp.NewConfiguredCLI(cfg)
	hub := notifications.NewHub(cfg.Notifications.EventBuffer)
	notifier := notifications.NewService(cfg)

	mgr, err := downloader.New(cfg, store, extractor, hub, notifier, logger)
	if err != nil {
		return fmt.Errorf("create download manager: %w", err)
	}
	defer mgr.Close()

	if err := mgr.Reload(signalCtx, ""); err != nil {
		logger.Warn("initial queue reconcile failed", logging.Error(err))
	}
	if cfg.Downloader.AutoStartQueue {
		started := mgr.StartQueued("")
		if started > 0 {
			logger.Info("resumed queued downloads",
				logging.String(logging.FieldEventType, "queue_start"),
				logging.Int("started_count", started))
		}
	}

	socketPath := filepath.Join(cfg.Paths.DataDir, ipc.SocketName)
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, mgr, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go logEvents(logger, events)

	logger.Info("spool daemon ready",
		logging.String("socket", socketPath),
		logging.String("queue_db", store.Path()))

	<-signalCtx.Done()
	logger.Info("spool daemon shutting down")
	return nil
}

func logEvents(logger *slog.Logger, events <-chan notifications.ProgressEvent) {
	for event := range events {
		if event.Status == string(queue.StatusDownloading) && event.Progress > 0 && event.Progress < 100 {
			logger.Debug("download progress",
				logging.String(logging.FieldJobID, event.JobID),
				logging.Float64("percent", event.Progress),
				logging.String("speed", event.Speed),
				logging.String("eta", event.ETA))
			continue
		}
		logger.Info("job status changed",
			logging.String(logging.FieldEventType, "job_status"),
			logging.String(logging.FieldJobID, event.JobID),
			logging.String("status", event.Status),
			logging.String("title", event.Title))
	}
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
