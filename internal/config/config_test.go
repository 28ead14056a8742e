package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"replayrig/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing file, got exists for %s", path)
	}
	if cfg.Recorder.URL != "ws://127.0.0.1:4455" {
		t.Errorf("unexpected recorder url %q", cfg.Recorder.URL)
	}
	if cfg.Orchestration.RecordingEnabled {
		t.Error("recording should default to disabled")
	}
	if !cfg.Orchestration.PauseBetweenEntries {
		t.Error("pause between entries should default to enabled")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
replay_dir = "` + filepath.Join(dir, "replays") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
temp_dir = "` + filepath.Join(dir, "tmp") + `"

[recorder]
url = "  ws://recorder.local:4455  "
connect_timeout = -5

[orchestration]
recording_enabled = true
pause_between_entries = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Recorder.URL != "ws://recorder.local:4455" {
		t.Errorf("recorder url not trimmed: %q", cfg.Recorder.URL)
	}
	if cfg.Recorder.ConnectTimeout != 10 {
		t.Errorf("negative timeout should fall back to default, got %d", cfg.Recorder.ConnectTimeout)
	}
	if !cfg.Orchestration.RecordingEnabled || cfg.Orchestration.PauseBetweenEntries {
		t.Errorf("orchestration mode not honored: %+v", cfg.Orchestration)
	}
}

func TestValidateRejectsBadRecorderURL(t *testing.T) {
	cfg := config.Default()
	cfg.Recorder.URL = "http://not-a-socket"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "recorder.url") {
		t.Fatalf("expected recorder.url error, got %v", err)
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected logging format error")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.TempDir = filepath.Join(dir, "tmp")
	cfg.Paths.ReplayDir = filepath.Join(dir, "replays")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, p := range []string{cfg.Paths.LogDir, cfg.Paths.TempDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s, err=%v", p, err)
		}
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, []byte(config.SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
