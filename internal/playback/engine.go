package playback

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"replayrig/internal/config"
	"replayrig/internal/logging"
)

// Handle is the capability set the orchestrator needs from a running engine.
// It is satisfied by *Engine and by test fakes.
type Handle interface {
	// Events returns the ordered lifecycle stream. The channel is closed
	// after the final EventEngineExited once the process is gone.
	Events() <-chan Event
	// Kill force-terminates the engine process. Safe to call repeatedly.
	Kill()
}

// Engine wraps one launched playback engine process.
type Engine struct {
	logger *slog.Logger
	grace  time.Duration

	events chan Event

	mu     sync.Mutex
	cmd    *exec.Cmd
	killed bool
}

// Launch starts the engine binary consuming the queue descriptor at
// queuePath. The engine owns the descriptor file from this point on.
func Launch(cfg *config.Config, logger *slog.Logger, queuePath string) (*Engine, error) {
	if strings.TrimSpace(queuePath) == "" {
		return nil, errors.New("queue descriptor path required")
	}

	args := append([]string(nil), cfg.Engine.ExtraArgs...)
	args = append(args, "--queue", queuePath)
	cmd := exec.Command(cfg.Engine.Binary, args...) //nolint:gosec

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Engine.Binary, err)
	}

	e := &Engine{
		logger: logging.NewComponentLogger(logger, "playback"),
		grace:  time.Duration(cfg.Engine.ShutdownGraceMillis) * time.Millisecond,
		events: make(chan Event, 16),
		cmd:    cmd,
	}
	e.logger.Info("playback engine launched",
		logging.String("binary", cfg.Engine.Binary),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("queue", queuePath),
	)

	go e.pump(stdout)
	return e, nil
}

// pump reads engine stdout line by line, forwarding recognized lifecycle
// events in arrival order. When stdout closes it reaps the process and emits
// the terminal exit event before closing the stream.
func (e *Engine) pump(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		event, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		e.events <- event
	}

	err := e.cmd.Wait()
	e.mu.Lock()
	killed := e.killed
	e.mu.Unlock()
	if err != nil && !killed {
		e.logger.Warn("playback engine exited abnormally",
			logging.Error(err),
			logging.String(logging.FieldEventType, "engine_exit_abnormal"),
			logging.String(logging.FieldErrorHint, "check the engine's own logs"),
		)
	}
	e.events <- Event{Type: EventEngineExited}
	close(e.events)
}

// Events returns the lifecycle stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Kill terminates the engine, escalating from SIGTERM to SIGKILL after the
// configured grace period.
func (e *Engine) Kill() {
	e.mu.Lock()
	if e.killed || e.cmd.Process == nil {
		e.mu.Unlock()
		return
	}
	e.killed = true
	process := e.cmd.Process
	e.mu.Unlock()

	if err := process.Signal(syscall.SIGTERM); err != nil {
		// Already reaped or never fully started.
		return
	}
	grace := e.grace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	go func() {
		time.Sleep(grace)
		_ = process.Kill()
	}()
	e.logger.Info("playback engine terminated")
}
