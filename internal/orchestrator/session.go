package orchestrator

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"replayrig/internal/logging"
	"replayrig/internal/notifications"
	"replayrig/internal/playback"
	"replayrig/internal/recorder"
)

// settleDelay is how long the session waits after a naturally concluded game
// before suspending the recorder, so the encoder is not cut off mid-frame.
const settleDelay = 1000 * time.Millisecond

// Session drives the recorder for one loaded queue. Its mode is immutable;
// loading another queue means constructing another session.
type Session struct {
	id       string
	mode     Mode
	rec      recorder.Controller
	engine   playback.Handle
	notifier notifications.Service
	logger   *slog.Logger
	entries  int
	started  time.Time

	// sleep is a seam for tests; production sessions sleep for real.
	sleep func(ctx context.Context, d time.Duration)

	basename atomic.Value

	startOnce  sync.Once
	terminated bool
	done       chan struct{}
}

// NewSession wires a session for one queue load. entries is the number of
// queued replays, used only for notifications and status.
func NewSession(mode Mode, rec recorder.Controller, engine playback.Handle, notifier notifications.Service, logger *slog.Logger, entries int) *Session {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	s := &Session{
		id:       uuid.NewString(),
		mode:     mode,
		rec:      rec,
		engine:   engine,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		entries:  entries,
		sleep:    sleepFor,
		done:     make(chan struct{}),
	}
	s.basename.Store("")
	return s
}

// ID returns the session identifier used in logs and status output.
func (s *Session) ID() string { return s.id }

// CurrentBasename reports the file currently loaded for playback. It is
// display-only and updates regardless of the recording gate.
func (s *Session) CurrentBasename() string {
	name, _ := s.basename.Load().(string)
	return name
}

// Done is closed once the event stream is exhausted and the session has shut
// down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start launches the single consumer goroutine. Events are handled one at a
// time, in arrival order; handling of event N+1 does not begin until event N
// has fully settled, including the settle delay and the command round-trip.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started = time.Now()
		s.logger.Info("session started",
			logging.String(logging.FieldSessionID, s.id),
			logging.Int("entries", s.entries),
			logging.Bool("recording_enabled", s.mode.RecordingEnabled),
			logging.Bool("pause_between_entries", s.mode.PauseBetweenEntries),
		)
		if err := s.notifier.NotifySessionStarted(ctx, s.entries, s.mode.RecordingEnabled); err != nil {
			s.logger.Debug("session start notification failed", logging.Error(err))
		}
		go s.run(ctx)
	})
}

// Stop force-terminates the engine. The resulting exit event flows through
// the normal serialized pipeline, which stops the recorder if it is active.
func (s *Session) Stop() {
	s.engine.Kill()
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for event := range s.engine.Events() {
		s.handle(ctx, event)
	}
	s.logger.Info("session finished",
		logging.String(logging.FieldSessionID, s.id),
		logging.Duration("elapsed", time.Since(s.started)),
	)
}

func (s *Session) handle(ctx context.Context, event playback.Event) {
	switch event.Type {
	case playback.EventCurrentFrame:
		return
	case playback.EventFilePath:
		// Display-only; bypasses the armed gate on purpose.
		s.basename.Store(filepath.Base(event.Path))
		return
	}

	if s.terminated {
		s.logger.Debug("event after session terminated, dropped",
			logging.String(logging.FieldEvent, string(event.Type)),
		)
		return
	}

	// Policy gate, not a failure: recording must be enabled and the device
	// reachable, or the event is silently dropped.
	if !s.mode.RecordingEnabled || !s.rec.IsConnected() {
		s.logger.Debug("event dropped by recording gate",
			logging.String(logging.FieldEvent, string(event.Type)),
			logging.Bool("recording_enabled", s.mode.RecordingEnabled),
			logging.Bool("recorder_connected", s.rec.IsConnected()),
		)
		return
	}

	switch event.Type {
	case playback.EventPlaybackStart:
		s.handlePlaybackStart(ctx)
	case playback.EventPlaybackEnd:
		s.handlePlaybackEnd(ctx, event.GameEnded)
	case playback.EventQueueEmpty:
		s.handleTerminal(ctx, true)
	case playback.EventEngineExited:
		s.handleTerminal(ctx, false)
	}
}

// handlePlaybackStart resumes recording at an entry boundary. A device that
// is not recording always gets a hard START, whatever the mode: the first
// entry of a session needs one, and a device stopped externally mid-session
// is restarted rather than left dark.
func (s *Session) handlePlaybackStart(ctx context.Context) {
	action := recorder.ActionStart
	if s.rec.IsRecording() {
		action = s.mode.resumeAction()
	}
	s.dispatch(ctx, action)
}

// handlePlaybackEnd suspends recording at an entry boundary. A naturally
// concluded game gets the settle delay first so the final frames land in the
// encode; a skipped game suspends immediately.
func (s *Session) handlePlaybackEnd(ctx context.Context, gameEnded bool) {
	if gameEnded {
		s.sleep(ctx, settleDelay)
	}
	s.dispatch(ctx, s.mode.suspendAction())
}

// handleTerminal ends the load. Queue exhaustion hard-stops the recorder
// unconditionally and tears the engine down; an engine exit only issues the
// stop when the device is actually recording. Further events for this load
// are dropped.
func (s *Session) handleTerminal(ctx context.Context, killEngine bool) {
	s.terminated = true
	if killEngine || s.rec.IsRecording() {
		s.dispatch(ctx, recorder.ActionStop)
	}
	if killEngine {
		s.engine.Kill()
	}
	if err := s.notifier.NotifySessionCompleted(ctx, s.entries, time.Since(s.started)); err != nil {
		s.logger.Debug("session completion notification failed", logging.Error(err))
	}
}

// dispatch sends one command to the recorder. Failures are logged and
// swallowed: a failed transition must never break the event subscription.
func (s *Session) dispatch(ctx context.Context, action recorder.Action) {
	s.logger.Info("recording transition",
		logging.String(logging.FieldSessionID, s.id),
		logging.String(logging.FieldAction, action.String()),
	)
	if err := s.rec.SetRecordingState(ctx, action); err != nil {
		s.logger.Error("recorder command failed",
			logging.String(logging.FieldSessionID, s.id),
			logging.String(logging.FieldAction, action.String()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "recorder_command_failed"),
			logging.String(logging.FieldErrorHint, "recording state may diverge until the next entry boundary"),
		)
		if notifyErr := s.notifier.NotifyError(ctx, err, "recorder command"); notifyErr != nil {
			s.logger.Debug("error notification failed", logging.Error(notifyErr))
		}
	}
}

func sleepFor(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifySessionStarted(context.Context, int, bool) error            { return nil }
func (noopNotifier) NotifySessionCompleted(context.Context, int, time.Duration) error { return nil }
func (noopNotifier) NotifyError(context.Context, error, string) error                 { return nil }
func (noopNotifier) TestNotification(context.Context) error                           { return nil }
