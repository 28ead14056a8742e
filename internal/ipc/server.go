package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"replayrig/internal/daemon"
	"replayrig/internal/logging"
	"replayrig/internal/logs"
	"replayrig/internal/orchestrator"
	"replayrig/internal/queue"
	"replayrig/internal/queuefile"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests daemon termination; it may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
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
	srv := &service{daemon: d, shutdown: shutdown, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Replayrig", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ipc"),
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
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
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
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) mode(overrides ModeOverrides) orchestrator.Mode {
	mode := s.daemon.DefaultMode()
	if overrides.RecordingEnabled != nil {
		mode.RecordingEnabled = *overrides.RecordingEnabled
	}
	if overrides.PauseBetweenEntries != nil {
		mode.PauseBetweenEntries = *overrides.PauseBetweenEntries
	}
	return mode
}

func convertEntry(entry *queue.Entry) QueueEntry {
	return QueueEntry{
		ID:       entry.ID,
		Path:     entry.Path,
		Position: entry.Position,
		AddedAt:  entry.AddedAt.Format(time.RFC3339),
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LockPath = status.LockFilePath
	resp.QueueDBPath = status.QueueDBPath
	resp.RecorderConnected = status.RecorderConnected
	resp.RecorderRecording = status.RecorderRecording
	resp.PendingCount = status.PendingCount
	resp.SessionActive = status.Session.Active
	resp.SessionID = status.Session.SessionID
	resp.CurrentBasename = status.Session.CurrentBasename
	resp.SessionEntries = status.Session.Entries
	resp.RecordingEnabled = status.Session.Mode.RecordingEnabled
	resp.PauseBetweenEntries = status.Session.Mode.PauseBetweenEntries
	resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:      dep.Name,
			Command:   dep.Command,
			Optional:  dep.Optional,
			Available: dep.Available,
			Detail:    dep.Detail,
		})
	}
	return nil
}

func (s *service) Play(req PlayRequest, resp *PlayResponse) error {
	s.log().Debug("play requested", logging.Int("file_count", len(req.Files)))
	session, err := s.daemon.LoadQueue(s.ctx, req.Files,
		queuefile.Options{Loop: req.Loop, Shuffle: req.Shuffle}, s.mode(req.Mode))
	if err != nil {
		return err
	}
	resp.SessionID = session.ID()
	status := s.daemon.Status(s.ctx)
	resp.Entries = status.Session.Entries
	s.log().Info("session started via IPC",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String(logging.FieldSessionID, session.ID()))
	return nil
}

func (s *service) PlayPending(req PlayPendingRequest, resp *PlayResponse) error {
	s.log().Debug("play pending requested")
	session, err := s.daemon.PlayPending(s.ctx,
		queuefile.Options{Loop: req.Loop, Shuffle: req.Shuffle}, s.mode(req.Mode))
	if err != nil {
		return err
	}
	resp.SessionID = session.ID()
	status := s.daemon.Status(s.ctx)
	resp.Entries = status.Session.Entries
	return nil
}

func (s *service) StopSession(_ StopSessionRequest, resp *StopSessionResponse) error {
	s.log().Debug("session stop requested")
	s.daemon.StopSession()
	resp.Stopped = true
	s.log().Info("session stopped via IPC",
		logging.String(logging.FieldEventType, "session_stop"))
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.log().Info("daemon shutdown requested",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	resp.ShuttingDown = s.shutdown != nil
	if s.shutdown != nil {
		// Deferred so the RPC response reaches the client first.
		go s.shutdown()
	}
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	entries, err := s.daemon.QueueAdd(s.ctx, req.Paths)
	if err != nil {
		return err
	}
	resp.Entries = make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, convertEntry(entry))
	}
	s.log().Info("pending replays queued",
		logging.String(logging.FieldEventType, "queue_add"),
		logging.Int("entry_count", len(resp.Entries)))
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	entries, err := s.daemon.QueueList(s.ctx)
	if err != nil {
		return err
	}
	resp.Entries = make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, convertEntry(entry))
	}
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid queue entry id %d", req.ID)
	}
	removed, err := s.daemon.QueueRemove(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) QueueClear(_ QueueClearRequest, resp *QueueClearResponse) error {
	s.log().Debug("queue clear requested")
	removed, err := s.daemon.QueueClear(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("pending queue cleared",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) Export(req ExportRequest, resp *ExportResponse) error {
	path, entries, err := s.daemon.ExportPending(s.ctx, req.Path,
		queuefile.Options{Loop: req.Loop, Shuffle: req.Shuffle})
	if err != nil {
		return err
	}
	resp.Path = path
	resp.Entries = entries
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.Options{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
