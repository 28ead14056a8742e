package ipc

import (
	"path/filepath"

	"replayrig/internal/config"
)

// SocketPath returns the daemon control socket location for a config.
func SocketPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "replayrig.sock")
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and session status information.
type StatusResponse struct {
	Running             bool   `json:"running"`
	PID                 int    `json:"pid"`
	LockPath            string `json:"lock_path"`
	QueueDBPath         string `json:"queue_db_path"`
	RecorderConnected   bool   `json:"recorder_connected"`
	RecorderRecording   bool   `json:"recorder_recording"`
	PendingCount        int    `json:"pending_count"`
	SessionActive       bool   `json:"session_active"`
	SessionID           string `json:"session_id"`
	CurrentBasename     string `json:"current_basename"`
	SessionEntries      int    `json:"session_entries"`
	RecordingEnabled    bool   `json:"recording_enabled"`
	PauseBetweenEntries bool   `json:"pause_between_entries"`

	Dependencies []DependencyStatus `json:"dependencies"`
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail"`
}

// ModeOverrides optionally replaces configured recording policy for one load.
type ModeOverrides struct {
	RecordingEnabled    *bool `json:"recording_enabled,omitempty"`
	PauseBetweenEntries *bool `json:"pause_between_entries,omitempty"`
}

// PlayRequest starts a playback session for an explicit file list.
type PlayRequest struct {
	Files   []string      `json:"files"`
	Loop    bool          `json:"loop"`
	Shuffle bool          `json:"shuffle"`
	Mode    ModeOverrides `json:"mode"`
}

// PlayPendingRequest starts a playback session from the persisted pending
// queue.
type PlayPendingRequest struct {
	Loop    bool          `json:"loop"`
	Shuffle bool          `json:"shuffle"`
	Mode    ModeOverrides `json:"mode"`
}

// PlayResponse reports the started session.
type PlayResponse struct {
	SessionID string `json:"session_id"`
	Entries   int    `json:"entries"`
}

// StopSessionRequest tears down the active playback session.
type StopSessionRequest struct{}

// StopSessionResponse indicates session stop result.
type StopSessionResponse struct {
	Stopped bool `json:"stopped"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	ShuttingDown bool `json:"shutting_down"`
}

// QueueEntry is the pending queue DTO shared by queue responses.
type QueueEntry struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Position int    `json:"position"`
	AddedAt  string `json:"added_at"`
}

// QueueAddRequest appends replay files to the pending queue.
type QueueAddRequest struct {
	Paths []string `json:"paths"`
}

// QueueAddResponse returns the entries created.
type QueueAddResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// QueueListRequest lists the pending queue.
type QueueListRequest struct{}

// QueueListResponse returns pending entries in position order.
type QueueListResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// QueueRemoveRequest removes one pending entry.
type QueueRemoveRequest struct {
	ID int64 `json:"id"`
}

// QueueRemoveResponse indicates removal result.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearRequest empties the pending queue.
type QueueClearRequest struct{}

// QueueClearResponse reports how many entries were removed.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// ExportRequest writes the pending queue to a descriptor file.
type ExportRequest struct {
	Path    string `json:"path"`
	Loop    bool   `json:"loop"`
	Shuffle bool   `json:"shuffle"`
}

// ExportResponse reports where the descriptor landed.
type ExportResponse struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

// LogTailRequest reads daemon log lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
