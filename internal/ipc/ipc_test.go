package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"replayrig/internal/daemon"
	"replayrig/internal/ipc"
	"replayrig/internal/logging"
	"replayrig/internal/queuefile"
	"replayrig/internal/recorder"
	"replayrig/internal/testsupport"
)

type stubRecorder struct{}

func (stubRecorder) IsConnected() bool { return false }
func (stubRecorder) IsRecording() bool { return false }
func (stubRecorder) Start(context.Context) {}
func (stubRecorder) Close()                {}

func (stubRecorder) SetRecordingState(context.Context, recorder.Action) error { return nil }

type harness struct {
	daemon   *daemon.Daemon
	client   *ipc.Client
	shutdown *atomic.Int32
	logPath  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedEngine("echo '[NO_GAME]'"))
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, stubRecorder{}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	var shutdowns atomic.Int32
	socket := ipc.SocketPath(cfg)
	server, err := ipc.NewServer(context.Background(), socket, d, func() { shutdowns.Add(1) }, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return &harness{daemon: d, client: client, shutdown: &shutdowns, logPath: d.LogPath()}
}

func TestStatusRoundTrip(t *testing.T) {
	h := newHarness(t)

	status, err := h.client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running {
		t.Errorf("status = %+v, want running", status)
	}
	if status.SessionActive {
		t.Error("no session should be active yet")
	}
	if status.PID == 0 {
		t.Error("expected daemon PID in status")
	}
}

func TestQueueLifecycleOverIPC(t *testing.T) {
	h := newHarness(t)

	added, err := h.client.QueueAdd([]string{"/replays/a.slp", "/replays/b.slp"})
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	if len(added.Entries) != 2 {
		t.Fatalf("added entries = %d, want 2", len(added.Entries))
	}

	listed, err := h.client.QueueList()
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listed.Entries) != 2 || listed.Entries[0].Path != "/replays/a.slp" {
		t.Fatalf("listed = %+v", listed.Entries)
	}

	removed, err := h.client.QueueRemove(listed.Entries[0].ID)
	if err != nil || !removed.Removed {
		t.Fatalf("QueueRemove = %+v, %v", removed, err)
	}

	cleared, err := h.client.QueueClear()
	if err != nil || cleared.Removed != 1 {
		t.Fatalf("QueueClear = %+v, %v", cleared, err)
	}
}

func TestQueueAddErrorPropagates(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.QueueAdd([]string{"/replays/notes.txt"}); err == nil {
		t.Fatal("expected error for non-replay files")
	}
}

func TestPlayStartsSession(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Play(ipc.PlayRequest{Files: []string{"/replays/a.slp"}})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}

	if _, err := h.client.StopSession(); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
}

func TestPlayPendingOverIPC(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.QueueAdd([]string{"/replays/a.slp"}); err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	resp, err := h.client.PlayPending(ipc.PlayPendingRequest{})
	if err != nil {
		t.Fatalf("PlayPending failed: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}

	listed, err := h.client.QueueList()
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listed.Entries) != 0 {
		t.Error("pending queue should be consumed by play")
	}
}

func TestExportOverIPC(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.QueueAdd([]string{"/replays/a.slp"}); err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}

	target := filepath.Join(t.TempDir(), "saved.json")
	resp, err := h.client.Export(ipc.ExportRequest{Path: target, Loop: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if resp.Entries != 1 {
		t.Errorf("exported entries = %d, want 1", resp.Entries)
	}

	descriptor, err := queuefile.Read(resp.Path)
	if err != nil {
		t.Fatalf("read exported descriptor: %v", err)
	}
	if !descriptor.Loop || len(descriptor.Queue) != 1 {
		t.Errorf("descriptor = %+v", descriptor)
	}
}

func TestLogTailOverIPC(t *testing.T) {
	h := newHarness(t)

	if err := os.MkdirAll(filepath.Dir(h.logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(h.logPath, []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, err := h.client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("LogTail failed: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[1] != "line two" {
		t.Fatalf("lines = %v", resp.Lines)
	}
}

func TestShutdownInvokesCallback(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !resp.ShuttingDown {
		t.Fatal("expected shutdown acknowledgement")
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.shutdown.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("shutdown callback was not invoked")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTestNotificationOverIPC(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if resp.Sent {
		t.Error("notification should not send without a configured topic")
	}
}
