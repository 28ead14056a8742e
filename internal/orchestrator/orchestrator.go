package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"replayrig/internal/config"
	"replayrig/internal/logging"
	"replayrig/internal/notifications"
	"replayrig/internal/playback"
	"replayrig/internal/queuefile"
	"replayrig/internal/recorder"
	"replayrig/internal/services"
)

// launchFunc abstracts engine startup so tests can substitute a scripted
// engine for the real process.
type launchFunc func(cfg *config.Config, logger *slog.Logger, queuePath string) (playback.Handle, error)

// Orchestrator constructs and tracks sessions. It is a process-scoped object
// built once at startup and passed by reference; there is no package-level
// instance.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	rec      recorder.Controller
	notifier notifications.Service
	launch   launchFunc

	mu     sync.Mutex
	active *Session
}

// Status is a snapshot of the active session for display surfaces.
type Status struct {
	Active          bool
	SessionID       string
	CurrentBasename string
	Entries         int
	Mode            Mode
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, rec recorder.Controller, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		rec:      rec,
		notifier: notifier,
		launch: func(cfg *config.Config, logger *slog.Logger, queuePath string) (playback.Handle, error) {
			return playback.Launch(cfg, logger, queuePath)
		},
	}
}

// LoadQueue materializes the file list, hands the descriptor to a freshly
// launched engine, and starts a session with the given mode. The mode is
// fixed for the lifetime of this load. Any previous session is torn down and
// fully drained first, so the single-command-in-flight guarantee holds across
// queue replacement.
func (o *Orchestrator) LoadQueue(ctx context.Context, files []string, opts queuefile.Options, mode Mode) (*Session, error) {
	descriptor, path, err := queuefile.Materialize(o.cfg.Paths.TempDir, files, opts)
	if err != nil {
		return nil, err
	}
	if descriptor == nil {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "load-queue", "no playable replay files in queue", nil)
	}

	o.mu.Lock()
	previous := o.active
	o.mu.Unlock()
	if previous != nil {
		previous.Stop()
		<-previous.Done()
	}

	engine, err := o.launch(o.cfg, o.logger, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "orchestrator", "load-queue", "launch playback engine", err)
	}

	session := NewSession(mode, o.rec, engine, o.notifier, o.logger, len(descriptor.Queue))
	session.Start(ctx)

	o.mu.Lock()
	o.active = session
	o.mu.Unlock()
	return session, nil
}

// Active returns the most recently loaded session, or nil.
func (o *Orchestrator) Active() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Status reports the active session snapshot.
func (o *Orchestrator) Status() Status {
	session := o.Active()
	if session == nil {
		return Status{}
	}
	select {
	case <-session.Done():
		return Status{}
	default:
	}
	return Status{
		Active:          true,
		SessionID:       session.ID(),
		CurrentBasename: session.CurrentBasename(),
		Entries:         session.entries,
		Mode:            session.mode,
	}
}

// Stop tears down the active session, if any, and waits for its event stream
// to drain so the recorder is left in a stopped state.
func (o *Orchestrator) Stop() {
	session := o.Active()
	if session == nil {
		return
	}
	session.Stop()
	<-session.Done()
}
