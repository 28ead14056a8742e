package recorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"replayrig/internal/config"
	"replayrig/internal/logging"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// fakeDevice implements enough of the control protocol to exercise the client:
// Hello/Identify handshake, GetRecordStatus, and scripted request handling.
type fakeDevice struct {
	t        *testing.T
	server   *httptest.Server
	password string
	active   bool

	mu       sync.Mutex
	requests []string
	conn     *websocket.Conn
	handle   func(requestType string) (bool, string)
}

func newFakeDevice(t *testing.T, password string, active bool) *fakeDevice {
	t.Helper()
	d := &fakeDevice{t: t, password: password, active: active}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.server.Close)
	return d
}

func (d *fakeDevice) url() string {
	return "ws" + strings.TrimPrefix(d.server.URL, "http")
}

func (d *fakeDevice) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	hello := map[string]any{"rpcVersion": rpcVersion}
	if d.password != "" {
		hello["authentication"] = map[string]string{"challenge": "chal", "salt": "salt"}
	}
	d.writeEnvelope(conn, opHello, hello)

	var env envelope
	if err := conn.ReadJSON(&env); err != nil || env.Op != opIdentify {
		return
	}
	if d.password != "" {
		var identify identifyData
		_ = json.Unmarshal(env.Data, &identify)
		if identify.Authentication != authResponse(d.password, "salt", "chal") {
			d.t.Error("client sent wrong authentication string")
			return
		}
	}
	d.writeEnvelope(conn, opIdentified, map[string]int{"negotiatedRpcVersion": rpcVersion})

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	for {
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Op != opRequest {
			continue
		}
		var req requestData
		if err := json.Unmarshal(env.Data, &req); err != nil {
			continue
		}
		d.mu.Lock()
		d.requests = append(d.requests, req.RequestType)
		handle := d.handle
		d.mu.Unlock()

		resp := requestResponseData{RequestType: req.RequestType, RequestID: req.RequestID}
		resp.RequestStatus.Result = true
		resp.RequestStatus.Code = 100
		switch {
		case req.RequestType == "GetRecordStatus":
			data, _ := json.Marshal(recordStatusResponse{OutputActive: d.active})
			resp.ResponseData = data
		case handle != nil:
			ok, comment := handle(req.RequestType)
			resp.RequestStatus.Result = ok
			resp.RequestStatus.Comment = comment
			if !ok {
				resp.RequestStatus.Code = 500
			}
		}
		d.writeEnvelope(conn, opRequestResponse, resp)
	}
}

func (d *fakeDevice) writeEnvelope(conn *websocket.Conn, op int, data any) {
	payload, err := marshalEnvelope(op, data)
	if err != nil {
		d.t.Errorf("marshal envelope: %v", err)
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func (d *fakeDevice) emitRecordState(active, paused bool) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		d.t.Fatal("no identified connection to emit on")
	}
	data, _ := json.Marshal(recordStateEvent{OutputActive: active, OutputPaused: paused})
	d.writeEnvelope(conn, opEvent, eventData{EventType: "RecordStateChanged", EventData: data})
}

func (d *fakeDevice) requestTypes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func newTestClient(t *testing.T, d *fakeDevice, password string) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Recorder.URL = d.url()
	cfg.Recorder.Password = password
	cfg.Recorder.ConnectTimeout = 5
	cfg.Recorder.CommandTimeout = 5
	return NewClient(&cfg, logging.NewNop())
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClientConnectsAndSeedsState(t *testing.T) {
	device := newFakeDevice(t, "", true)
	client := newTestClient(t, device, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	waitFor(t, "connection", client.IsConnected)
	if !client.IsRecording() {
		t.Error("expected seeded recording state to be active")
	}
}

func TestClientAuthenticates(t *testing.T) {
	device := newFakeDevice(t, "supersecret", false)
	client := newTestClient(t, device, "supersecret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	waitFor(t, "authenticated connection", client.IsConnected)
	if client.IsRecording() {
		t.Error("expected idle recording state")
	}
}

func TestSetRecordingStateRoundTrip(t *testing.T) {
	device := newFakeDevice(t, "", false)
	client := newTestClient(t, device, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	waitFor(t, "connection", client.IsConnected)

	if err := client.SetRecordingState(ctx, ActionStart); err != nil {
		t.Fatalf("set recording state: %v", err)
	}
	types := device.requestTypes()
	if len(types) == 0 || types[len(types)-1] != "StartRecord" {
		t.Fatalf("expected StartRecord request, got %v", types)
	}

	device.emitRecordState(true, false)
	waitFor(t, "recording state", client.IsRecording)
}

func TestSetRecordingStateRejected(t *testing.T) {
	device := newFakeDevice(t, "", false)
	device.mu.Lock()
	device.handle = func(requestType string) (bool, string) { return false, "output busy" }
	device.mu.Unlock()
	client := newTestClient(t, device, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	waitFor(t, "connection", client.IsConnected)

	err := client.SetRecordingState(ctx, ActionPause)
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if !strings.Contains(err.Error(), "output busy") {
		t.Errorf("expected device comment in error, got %v", err)
	}
}

func TestSetRecordingStateWhileDisconnected(t *testing.T) {
	cfg := config.Default()
	cfg.Recorder.URL = "ws://127.0.0.1:1"
	client := NewClient(&cfg, logging.NewNop())

	err := client.SetRecordingState(context.Background(), ActionStop)
	if err == nil {
		t.Fatal("expected not-connected error")
	}
}

func TestAuthResponseDeterministic(t *testing.T) {
	a := authResponse("pw", "salt", "chal")
	b := authResponse("pw", "salt", "chal")
	if a != b {
		t.Error("auth response should be deterministic")
	}
	if a == authResponse("other", "salt", "chal") {
		t.Error("auth response should depend on password")
	}
}
