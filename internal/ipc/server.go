package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"spool/internal/downloader"
	"spool/internal/logging"
	"spool/internal/logs"
	"spool/internal/queue"
)

// SocketName is the control socket file created under the data directory.
const SocketName = "spool.sock"

// Server exposes the download manager via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	manager   *downloader.Manager
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, mgr *downloader.Manager, logger *slog.Logger) (*Server, error) {
	if mgr == nil {
		return nil, errors.New("ipc server requires manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{manager: mgr, socketPath: path, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Spool", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		manager:   mgr,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually before the next run"))
	}
}

type service struct {
	manager    *downloader.Manager
	socketPath string
	logger     *slog.Logger
	ctx        context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	id, err := s.manager.Enqueue(s.ctx, downloader.EnqueueRequest{
		URL:        req.URL,
		Title:      req.Title,
		FormatSpec: req.Format,
		UserID:     req.UserID,
		Detected:   req.Detected,
	})
	if err != nil {
		return err
	}
	resp.ID = id
	s.log().Info("job enqueued via IPC",
		logging.String(logging.FieldEventType, "job_enqueued"),
		logging.String(logging.FieldJobID, id))
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make(map[queue.Status]struct{}, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := queue.ParseStatus(status)
		if !ok {
			continue
		}
		statuses[parsed] = struct{}{}
	}
	jobs := s.manager.ListQueue(req.UserID)
	resp.Items = make([]JobItem, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[job.Status]; !ok {
				continue
			}
		}
		resp.Items = append(resp.Items, FromJob(job))
	}
	return nil
}

func (s *service) QueueDescribe(req QueueDescribeRequest, resp *QueueDescribeResponse) error {
	if req.ID == "" {
		return errors.New("queue describe requires a job id")
	}
	job, ok := s.manager.GetJob(req.ID)
	if !ok {
		return fmt.Errorf("job %s not found", req.ID)
	}
	resp.Item = FromJob(job)
	return nil
}

func (s *service) Start(req StartRequest, resp *StartResponse) error {
	if req.ID == "" {
		return errors.New("start requires a job id")
	}
	job, ok := s.manager.GetJob(req.ID)
	if !ok {
		resp.Message = fmt.Sprintf("job %s not found", req.ID)
		return nil
	}
	if job.Status != queue.StatusQueued {
		resp.Message = fmt.Sprintf("job %s is %s, not queued", req.ID, job.Status)
		return nil
	}
	s.manager.Start(req.ID)
	resp.Started = true
	resp.Message = "download scheduled"
	return nil
}

func (s *service) StartQueued(req StartQueuedRequest, resp *StartQueuedResponse) error {
	resp.Started = s.manager.StartQueued(req.UserID)
	s.log().Info("queued jobs scheduled",
		logging.String(logging.FieldEventType, "queue_start"),
		logging.Int("started_count", resp.Started))
	return nil
}

func (s *service) Promote(req PromoteRequest, resp *PromoteResponse) error {
	if req.ID == "" {
		return errors.New("promote requires a job id")
	}
	resp.Promoted = s.manager.PromoteDetected(s.ctx, req.ID, req.AutoStart)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if req.ID == "" {
		return errors.New("cancel requires a job id")
	}
	resp.Canceled = s.manager.Cancel(s.ctx, req.ID)
	if resp.Canceled {
		s.log().Info("job canceled via IPC",
			logging.String(logging.FieldEventType, "job_canceled"),
			logging.String(logging.FieldJobID, req.ID))
	}
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	if req.ID == "" {
		return errors.New("remove requires a job id")
	}
	resp.Removed = s.manager.Remove(s.ctx, req.ID)
	if resp.Removed {
		s.log().Info("job removed via IPC",
			logging.String(logging.FieldEventType, "job_removed"),
			logging.String(logging.FieldJobID, req.ID))
	}
	return nil
}

func (s *service) QueueClearCompleted(_ QueueClearCompletedRequest, resp *QueueClearCompletedResponse) error {
	removed, err := s.manager.ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("completed jobs cleared",
		logging.String(logging.FieldEventType, "queue_clear_completed"),
		logging.Int("removed_count", removed))
	return nil
}

func (s *service) QueueClearFailed(_ QueueClearFailedRequest, resp *QueueClearFailedResponse) error {
	removed, err := s.manager.ClearFailed(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("failed jobs cleared",
		logging.String(logging.FieldEventType, "queue_clear_failed"),
		logging.Int("removed_count", removed))
	return nil
}

func (s *service) Reload(req ReloadRequest, resp *ReloadResponse) error {
	if err := s.manager.Reload(s.ctx, req.UserID); err != nil {
		return err
	}
	resp.Reloaded = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Running = true
	resp.PID = os.Getpid()
	resp.QueueDBPath = s.manager.StorePath()
	resp.SocketPath = s.socketPath
	stats := s.manager.Stats()
	resp.QueueStats = make(map[string]int, len(stats))
	for status, count := range stats {
		resp.QueueStats[string(status)] = count
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.manager.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	var wait time.Duration
	if req.Follow {
		wait = time.Duration(req.WaitMillis) * time.Millisecond
		if wait <= 0 {
			wait = time.Second
		}
	}
	ctx := s.ctx
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	page, err := logs.Tail(ctx, logPath, logs.Request{Cursor: req.Offset, Limit: req.Limit, Wait: wait})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = page.Cursor
			return nil
		}
		return err
	}
	resp.Lines = page.Lines
	resp.Offset = page.Cursor
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.manager.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}
