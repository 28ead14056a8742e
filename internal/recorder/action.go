package recorder

import "fmt"

// Action is a recording-state transition command sent to the device.
type Action string

const (
	ActionStart   Action = "START"
	ActionStop    Action = "STOP"
	ActionPause   Action = "PAUSE"
	ActionUnpause Action = "UNPAUSE"
)

// requestType maps an action to the device request name. The device treats
// all of these as idempotent: pausing an already paused output is a no-op.
func (a Action) requestType() (string, error) {
	switch a {
	case ActionStart:
		return "StartRecord", nil
	case ActionStop:
		return "StopRecord", nil
	case ActionPause:
		return "PauseRecord", nil
	case ActionUnpause:
		return "ResumeRecord", nil
	default:
		return "", fmt.Errorf("unknown recording action %q", string(a))
	}
}

// String implements fmt.Stringer for log fields.
func (a Action) String() string { return string(a) }
