package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for orchestration session identifiers.
	FieldSessionID = "session_id"
	// FieldEvent is the standardized structured logging key for playback lifecycle event names.
	FieldEvent = "event"
	// FieldAction is the standardized structured logging key for recording actions.
	FieldAction = "action"
	// FieldEventType is the standardized structured logging key for machine-readable event classifications.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on failures.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldReplay is the standardized structured logging key for replay file paths.
	FieldReplay = "replay"
)
