package orchestrator

import "replayrig/internal/recorder"

// Mode fixes the recording policy for the lifetime of one loaded queue.
// Changing modes requires loading a new queue.
type Mode struct {
	// RecordingEnabled arms the session. When false no lifecycle event
	// produces a recorder command.
	RecordingEnabled bool
	// PauseBetweenEntries selects the pause/unpause transition pair at entry
	// boundaries instead of stop/start, so a whole session lands in one
	// output file.
	PauseBetweenEntries bool
}

// resumeAction is the transition issued at an entry start when the device is
// already recording.
func (m Mode) resumeAction() recorder.Action {
	if m.PauseBetweenEntries {
		return recorder.ActionUnpause
	}
	return recorder.ActionStart
}

// suspendAction is the transition issued at an entry end.
func (m Mode) suspendAction() recorder.Action {
	if m.PauseBetweenEntries {
		return recorder.ActionPause
	}
	return recorder.ActionStop
}
