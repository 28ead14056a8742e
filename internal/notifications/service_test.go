package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"replayrig/internal/config"
	"replayrig/internal/notifications"
)

type recordedRequest struct {
	title    string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySessionStarted(context.Background(), 3, true); err != nil {
		t.Fatalf("noop service should never error: %v", err)
	}
}

func TestSessionNotifications(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	svc := serviceFor(server.URL)

	if err := svc.NotifySessionStarted(context.Background(), 4, true); err != nil {
		t.Fatalf("session started: %v", err)
	}
	if err := svc.NotifySessionCompleted(context.Background(), 4, 95*time.Second); err != nil {
		t.Fatalf("session completed: %v", err)
	}

	got := requests()
	if len(got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(got))
	}
	if !strings.Contains(got[0].body, "4 replays") {
		t.Errorf("started body = %q", got[0].body)
	}
	if !strings.Contains(got[1].body, "1m35s") {
		t.Errorf("completed body = %q", got[1].body)
	}
}

func TestErrorNotificationIsHighPriority(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	svc := serviceFor(server.URL)

	if err := svc.NotifyError(context.Background(), errors.New("device gone"), "recorder command"); err != nil {
		t.Fatalf("notify error: %v", err)
	}
	got := requests()
	if len(got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(got))
	}
	if got[0].priority != "high" {
		t.Errorf("priority = %q, want high", got[0].priority)
	}
	if !strings.Contains(got[0].body, "recorder command") || !strings.Contains(got[0].body, "device gone") {
		t.Errorf("body = %q", got[0].body)
	}
}

func TestSendSurfacesHTTPFailure(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusInternalServerError)
	svc := serviceFor(server.URL)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestDisabledCategoriesSkipSend(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Sessions = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifySessionStarted(context.Background(), 1, false); err != nil {
		t.Fatalf("disabled category should be silent: %v", err)
	}
	if len(requests()) != 0 {
		t.Error("expected no request for disabled category")
	}
}
