package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"replayrig/internal/config"
	"replayrig/internal/deps"
	"replayrig/internal/logging"
	"replayrig/internal/notifications"
	"replayrig/internal/orchestrator"
	"replayrig/internal/queue"
	"replayrig/internal/queuefile"
	"replayrig/internal/recorder"
	"replayrig/internal/services"
)

// RecorderClient is the slice of the recorder client the daemon manages:
// state queries for the orchestrator plus connection lifecycle.
type RecorderClient interface {
	recorder.Controller
	Start(ctx context.Context)
	Close()
}

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	rec      RecorderClient
	orch     *orchestrator.Orchestrator
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool
	PID               int
	LockFilePath      string
	QueueDBPath       string
	RecorderConnected bool
	RecorderRecording bool
	PendingCount      int
	Session           orchestrator.Status
	Dependencies      []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, rec RecorderClient, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || rec == nil {
		return nil, errors.New("daemon requires config, store, and recorder client")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	notifier := notifications.NewService(cfg)
	lockPath := filepath.Join(cfg.Paths.LogDir, "replayrigd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		rec:      rec,
		orch:     orchestrator.New(cfg, rec, notifier, logger),
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "replayrig.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins connecting to the recorder.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another replayrig daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.rec.Start(d.ctx)
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop tears down the active session, disconnects from the recorder, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.orch.Stop()
	d.rec.Close()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// DefaultMode derives the recording policy from configuration.
func (d *Daemon) DefaultMode() orchestrator.Mode {
	return orchestrator.Mode{
		RecordingEnabled:    d.cfg.Orchestration.RecordingEnabled,
		PauseBetweenEntries: d.cfg.Orchestration.PauseBetweenEntries,
	}
}

// LoadQueue starts a playback session for the given files, replacing any
// active session.
func (d *Daemon) LoadQueue(ctx context.Context, files []string, opts queuefile.Options, mode orchestrator.Mode) (*orchestrator.Session, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon is not running")
	}
	return d.orch.LoadQueue(ctx, files, opts, mode)
}

// PlayPending loads the persisted pending queue into a session and clears it
// on success.
func (d *Daemon) PlayPending(ctx context.Context, opts queuefile.Options, mode orchestrator.Mode) (*orchestrator.Session, error) {
	paths, err := d.store.Paths(ctx)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "daemon", "play-pending", "pending queue is empty", nil)
	}
	session, err := d.LoadQueue(ctx, paths, opts, mode)
	if err != nil {
		return nil, err
	}
	if _, err := d.store.Clear(ctx); err != nil {
		d.logger.Warn("failed to clear pending queue after load", logging.Error(err))
	}
	return session, nil
}

// StopSession tears down the active playback session, if any.
func (d *Daemon) StopSession() {
	d.orch.Stop()
}

// QueueAdd appends replay files to the pending queue.
func (d *Daemon) QueueAdd(ctx context.Context, paths []string) ([]*queue.Entry, error) {
	resolved := make([]string, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		abs, err := config.ExpandPath(trimmed)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, abs)
	}
	return d.store.Add(ctx, resolved...)
}

// QueueList returns pending entries in position order.
func (d *Daemon) QueueList(ctx context.Context) ([]*queue.Entry, error) {
	return d.store.List(ctx)
}

// QueueRemove deletes a pending entry by identifier.
func (d *Daemon) QueueRemove(ctx context.Context, id int64) (bool, error) {
	return d.store.Remove(ctx, id)
}

// QueueClear removes all pending entries.
func (d *Daemon) QueueClear(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ExportPending writes the pending queue to a descriptor file at the given
// path without consuming it.
func (d *Daemon) ExportPending(ctx context.Context, path string, opts queuefile.Options) (string, int, error) {
	paths, err := d.store.Paths(ctx)
	if err != nil {
		return "", 0, err
	}
	entries := make([]queuefile.Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, queuefile.Entry{Path: p})
	}
	descriptor := &queuefile.Descriptor{Options: opts, Queue: entries}

	target, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", 0, fmt.Errorf("create export directory: %w", err)
	}
	if err := queuefile.Export(target, descriptor); err != nil {
		return "", 0, err
	}
	d.logger.Info("pending queue exported",
		logging.String("path", target),
		logging.Int("entries", len(entries)),
	)
	return target, len(entries), nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	pending, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Warn("failed to count pending queue", logging.Error(err))
	}
	return Status{
		Running:           d.running.Load(),
		PID:               os.Getpid(),
		LockFilePath:      d.lockPath,
		QueueDBPath:       filepath.Join(d.cfg.Paths.LogDir, "queue.db"),
		RecorderConnected: d.rec.IsConnected(),
		RecorderRecording: d.rec.IsRecording(),
		PendingCount:      pending,
		Session:           d.orch.Status(),
		Dependencies:      deps.CheckBinaries(deps.ForConfig(d.cfg)),
	}
}
