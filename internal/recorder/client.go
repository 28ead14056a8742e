package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"replayrig/internal/config"
	"replayrig/internal/logging"
	"replayrig/internal/services"
)

// ErrNotConnected is returned by commands issued while the device link is down.
var ErrNotConnected = errors.New("recorder not connected")

// Controller is the control surface the orchestrator drives. State queries
// never block; the command call may block for the device round-trip and may
// fail.
type Controller interface {
	IsConnected() bool
	IsRecording() bool
	SetRecordingState(ctx context.Context, action Action) error
}

// Client implements Controller over a persistent WebSocket connection with
// automatic reconnect.
type Client struct {
	url            string
	password       string
	connectTimeout time.Duration
	commandTimeout time.Duration
	logger         *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected bool
	recording bool
	paused    bool
	pending   map[string]chan requestResponseData

	runOnce sync.Once
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient builds a recorder client from configuration. Run must be called
// before the client reports itself connected.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		url:            cfg.Recorder.URL,
		password:       cfg.Recorder.Password,
		connectTimeout: time.Duration(cfg.Recorder.ConnectTimeout) * time.Second,
		commandTimeout: time.Duration(cfg.Recorder.CommandTimeout) * time.Second,
		logger:         logging.NewComponentLogger(logger, "recorder"),
		pending:        make(map[string]chan requestResponseData),
		done:           make(chan struct{}),
	}
}

// Run maintains the device connection until ctx is canceled, reconnecting
// with exponential backoff. It returns once the connection loop has stopped.
func (c *Client) Run(ctx context.Context) {
	c.runOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()
		go c.connectLoop(runCtx)
	})
	<-c.done
}

// Start launches Run in the background.
func (c *Client) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Close tears down the connection loop.
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Client) connectLoop(ctx context.Context) {
	defer close(c.done)
	backoff := time.Second

	for {
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Warn("recorder connection lost",
				logging.Error(err),
				logging.String(logging.FieldEventType, "recorder_disconnected"),
				logging.String(logging.FieldErrorHint, "check that the recording device is running and reachable"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff = min(backoff*2, 30*time.Second)
		}
	}
}

// connectOnce dials, completes the Hello/Identify handshake, seeds the cached
// record state, and then serves reads until the connection drops.
func (c *Client) connectOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	if err := c.handshake(conn); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("recorder connected", logging.String("url", c.url))

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.connected = false
		c.recording = false
		c.paused = false
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
	}()

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.pingLoop(pingCtx, conn)

	if err := c.seedRecordState(ctx, conn); err != nil {
		return fmt.Errorf("seed record state: %w", err)
	}

	return c.readLoop(ctx, conn)
}

func (c *Client) handshake(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.connectTimeout))
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if env.Op != opHello {
		return fmt.Errorf("expected hello opcode, got %d", env.Op)
	}
	var hello helloData
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return fmt.Errorf("parse hello: %w", err)
	}

	identify := identifyData{RPCVersion: rpcVersion}
	if hello.Authentication != nil {
		identify.Authentication = authResponse(c.password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}
	payload, err := marshalEnvelope(opIdentify, identify)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write identify: %w", err)
	}

	if err := conn.ReadJSON(&env); err != nil {
		return fmt.Errorf("read identified: %w", err)
	}
	if env.Op != opIdentified {
		return fmt.Errorf("expected identified opcode, got %d", env.Op)
	}
	return nil
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) seedRecordState(ctx context.Context, conn *websocket.Conn) error {
	// The read loop is not running yet, so perform a synchronous round-trip.
	id := uuid.NewString()
	payload, err := marshalEnvelope(opRequest, requestData{RequestType: "GetRecordStatus", RequestID: id})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.commandTimeout))
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		if env.Op == opEvent {
			c.handleEvent(env.Data)
			continue
		}
		if env.Op != opRequestResponse {
			continue
		}
		var resp requestResponseData
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			return err
		}
		if resp.RequestID != id {
			continue
		}
		if !resp.RequestStatus.Result {
			return fmt.Errorf("record status request rejected: %s", resp.RequestStatus.Comment)
		}
		var status recordStatusResponse
		if len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, &status); err != nil {
				return err
			}
		}
		c.mu.Lock()
		c.recording = status.OutputActive
		c.paused = status.OutputPaused
		c.mu.Unlock()
		return nil
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch env.Op {
		case opEvent:
			c.handleEvent(env.Data)
		case opRequestResponse:
			var resp requestResponseData
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				c.logger.Debug("malformed request response", logging.Error(err))
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[resp.RequestID]
			if ok {
				delete(c.pending, resp.RequestID)
			}
			c.mu.Unlock()
			if ok {
				ch <- resp
				close(ch)
			}
		}
	}
}

func (c *Client) handleEvent(data json.RawMessage) {
	var evt eventData
	if err := json.Unmarshal(data, &evt); err != nil {
		return
	}
	if evt.EventType != "RecordStateChanged" {
		return
	}
	var state recordStateEvent
	if err := json.Unmarshal(evt.EventData, &state); err != nil {
		return
	}
	c.mu.Lock()
	c.recording = state.OutputActive
	c.paused = state.OutputPaused
	c.mu.Unlock()
	c.logger.Debug("record state changed",
		logging.Bool("active", state.OutputActive),
		logging.Bool("paused", state.OutputPaused),
	)
}

// IsConnected reports whether the device link is identified and live.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// IsRecording reports whether the device output is active. A paused output
// still counts as recording.
func (c *Client) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// SetRecordingState issues a state-transition command and waits for the
// device acknowledgment. Commands are idempotent on the device side.
func (c *Client) SetRecordingState(ctx context.Context, action Action) error {
	requestType, err := action.requestType()
	if err != nil {
		return services.Wrap(services.ErrValidation, "recorder", "set-state", "", err)
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return services.Wrap(services.ErrUnavailable, "recorder", "set-state", requestType, ErrNotConnected)
	}
	id := uuid.NewString()
	ch := make(chan requestResponseData, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := marshalEnvelope(opRequest, requestData{RequestType: requestType, RequestID: id})
	if err != nil {
		c.dropPending(id)
		return services.Wrap(services.ErrTransient, "recorder", "set-state", requestType, err)
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(id)
		return services.Wrap(services.ErrUnavailable, "recorder", "set-state", requestType, err)
	}

	waitCtx := ctx
	if c.commandTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.commandTimeout)
		defer cancel()
	}

	select {
	case <-waitCtx.Done():
		c.dropPending(id)
		return services.Wrap(services.ErrTransient, "recorder", "set-state", requestType, waitCtx.Err())
	case resp, ok := <-ch:
		if !ok {
			return services.Wrap(services.ErrUnavailable, "recorder", "set-state", requestType, ErrNotConnected)
		}
		if !resp.RequestStatus.Result {
			return services.Wrap(services.ErrExternalTool, "recorder", "set-state",
				fmt.Sprintf("%s rejected (code %d): %s", requestType, resp.RequestStatus.Code, resp.RequestStatus.Comment), nil)
		}
		return nil
	}
}

func (c *Client) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
