// Package orchestrator keeps the remote recorder in lock-step with the
// playback engine. One session exists per loaded queue; it consumes the
// engine's lifecycle stream strictly in order, applying the session's
// recording mode to decide which state transition the recorder receives.
//
// The recorder is a shared stateful device, so the session never overlaps
// command round-trips: each event is handled to completion, including the
// settle delay and the device acknowledgment, before the next event is even
// received. Exclusivity comes from the single consumer goroutine, not from
// locks.
package orchestrator
