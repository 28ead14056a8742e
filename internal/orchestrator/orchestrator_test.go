package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"replayrig/internal/config"
	"replayrig/internal/logging"
	"replayrig/internal/playback"
	"replayrig/internal/queuefile"
	"replayrig/internal/recorder"
	"replayrig/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	return &cfg
}

// scriptedLauncher hands out fake engines and records the descriptor path of
// every launch.
type scriptedLauncher struct {
	mu      sync.Mutex
	paths   []string
	engines []*fakeEngine
	fail    error
}

func (l *scriptedLauncher) launch(_ *config.Config, _ *slog.Logger, queuePath string) (playback.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	engine := newFakeEngine()
	l.paths = append(l.paths, queuePath)
	l.engines = append(l.engines, engine)
	return engine, nil
}

func (l *scriptedLauncher) last() (*fakeEngine, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.engines) == 0 {
		return nil, ""
	}
	return l.engines[len(l.engines)-1], l.paths[len(l.paths)-1]
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *scriptedLauncher, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{connected: true}
	launcher := &scriptedLauncher{}
	o := New(testConfig(t), rec, nil, logging.NewNop())
	o.launch = launcher.launch
	return o, launcher, rec
}

func TestLoadQueueRejectsQueueWithoutReplays(t *testing.T) {
	o, launcher, _ := newTestOrchestrator(t)

	_, err := o.LoadQueue(context.Background(), []string{"notes.txt", "cover.png"}, queuefile.Options{}, Mode{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if engine, _ := launcher.last(); engine != nil {
		t.Fatal("engine must not launch for an empty queue")
	}
}

func TestLoadQueueMaterializesAndLaunches(t *testing.T) {
	o, launcher, _ := newTestOrchestrator(t)

	session, err := o.LoadQueue(context.Background(),
		[]string{"/replays/a.slp", "/replays/readme.md", "/replays/b.slp"},
		queuefile.Options{Loop: true}, Mode{RecordingEnabled: true})
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}

	engine, path := launcher.last()
	if engine == nil {
		t.Fatal("engine was not launched")
	}
	descriptor, err := queuefile.Read(path)
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	if !descriptor.Loop {
		t.Error("loop option was not persisted")
	}
	want := []string{"/replays/a.slp", "/replays/b.slp"}
	got := descriptor.Paths()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("descriptor paths = %v, want %v", got, want)
	}

	status := o.Status()
	if !status.Active || status.SessionID != session.ID() || status.Entries != 2 {
		t.Errorf("status = %+v", status)
	}
}

func TestLoadQueueReplacesPreviousSession(t *testing.T) {
	o, launcher, _ := newTestOrchestrator(t)

	first, err := o.LoadQueue(context.Background(), []string{"/replays/a.slp"}, queuefile.Options{}, Mode{})
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	firstEngine, _ := launcher.last()

	// Once killed, the engine would close its event channel. Mimic that so
	// the replaced session can drain.
	go func() {
		for firstEngine.kills.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		close(firstEngine.events)
	}()

	second, err := o.LoadQueue(context.Background(), []string{"/replays/b.slp"}, queuefile.Options{}, Mode{})
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first.ID() == second.ID() {
		t.Fatal("expected a fresh session per load")
	}
	if firstEngine.kills.Load() == 0 {
		t.Error("previous engine was not torn down")
	}
	if o.Active().ID() != second.ID() {
		t.Error("active session was not replaced")
	}
}

func TestLoadQueueReplacementDoesNotInterleaveRecorderCommands(t *testing.T) {
	o, launcher, rec := newTestOrchestrator(t)
	rec.delay = 10 * time.Millisecond

	first, err := o.LoadQueue(context.Background(), []string{"/replays/a.slp"}, queuefile.Options{}, Mode{RecordingEnabled: true})
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	firstEngine, _ := launcher.last()
	go func() {
		for firstEngine.kills.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		close(firstEngine.events)
	}()

	firstEngine.events <- playback.Event{Type: playback.EventPlaybackStart}
	// A natural end puts the first session into its settle delay, so the
	// replacement load arrives while an event is still being handled.
	firstEngine.events <- playback.Event{Type: playback.EventPlaybackEnd, GameEnded: true}

	second, err := o.LoadQueue(context.Background(), []string{"/replays/b.slp"}, queuefile.Options{}, Mode{RecordingEnabled: true})
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	select {
	case <-first.Done():
	default:
		t.Fatal("replacement load returned before the previous session drained")
	}

	secondEngine, _ := launcher.last()
	secondEngine.events <- playback.Event{Type: playback.EventPlaybackStart}
	drain(t, second, secondEngine)

	// The stale session's suspend must settle before the new session's start.
	assertActions(t, rec.actions(), []recorder.Action{
		recorder.ActionStart, recorder.ActionStop, recorder.ActionStart,
	})
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.maxInFlight != 1 {
		t.Errorf("max in-flight commands = %d, want 1", rec.maxInFlight)
	}
	for i := 1; i < len(rec.commands); i++ {
		if rec.commands[i].start.Before(rec.commands[i-1].end) {
			t.Errorf("command %d started before command %d settled", i, i-1)
		}
	}
}

func TestLoadQueueWrapsLaunchFailure(t *testing.T) {
	o, launcher, _ := newTestOrchestrator(t)
	launcher.fail = errors.New("binary not found")

	_, err := o.LoadQueue(context.Background(), []string{"/replays/a.slp"}, queuefile.Options{}, Mode{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestStopDrainsActiveSession(t *testing.T) {
	o, launcher, _ := newTestOrchestrator(t)

	session, err := o.LoadQueue(context.Background(), []string{"/replays/a.slp"}, queuefile.Options{}, Mode{})
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}
	engine, _ := launcher.last()
	go func() {
		for engine.kills.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		close(engine.events)
	}()

	o.Stop()

	select {
	case <-session.Done():
	default:
		t.Fatal("stop returned before the session drained")
	}
	if status := o.Status(); status.Active {
		t.Errorf("status after stop = %+v", status)
	}
}

func TestStatusEmptyWithoutSession(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	if status := o.Status(); status.Active {
		t.Errorf("status = %+v, want inactive", status)
	}
}
