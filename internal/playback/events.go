package playback

import (
	"strconv"
	"strings"
)

// EventType classifies playback lifecycle events emitted by the engine.
type EventType string

const (
	// EventPlaybackStart marks the start of one queued replay.
	EventPlaybackStart EventType = "PLAYBACK_START"
	// EventPlaybackEnd marks the end of one queued replay. GameEnded reports
	// whether the game concluded naturally or was skipped.
	EventPlaybackEnd EventType = "PLAYBACK_END"
	// EventQueueEmpty signals that the engine exhausted the loaded queue.
	EventQueueEmpty EventType = "QUEUE_EMPTY"
	// EventCurrentFrame is a progress tick. It never drives orchestration.
	EventCurrentFrame EventType = "CURRENT_FRAME"
	// EventFilePath reports the replay file currently loaded for playback.
	EventFilePath EventType = "FILE_PATH"
	// EventEngineExited is synthesized when the engine process terminates.
	EventEngineExited EventType = "ENGINE_EXITED"
)

// Event is one entry in the engine's ordered lifecycle stream.
type Event struct {
	Type      EventType
	GameEnded bool
	Frame     int
	Path      string
}

// parseLine recognizes engine log lines of the form "[TAG] payload". Lines
// that are not lifecycle markers are skipped.
func parseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return Event{}, false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return Event{}, false
	}
	tag := line[1:end]
	payload := strings.TrimSpace(line[end+1:])

	switch tag {
	case "PLAYBACK_START":
		return Event{Type: EventPlaybackStart}, true
	case "PLAYBACK_END":
		return Event{Type: EventPlaybackEnd, GameEnded: parseGameEnded(payload)}, true
	case "NO_GAME":
		return Event{Type: EventQueueEmpty}, true
	case "CURRENT_FRAME":
		frame, err := strconv.Atoi(payload)
		if err != nil {
			return Event{}, false
		}
		return Event{Type: EventCurrentFrame, Frame: frame}, true
	case "FILE_PATH":
		if payload == "" {
			return Event{}, false
		}
		return Event{Type: EventFilePath, Path: payload}, true
	default:
		return Event{}, false
	}
}

func parseGameEnded(payload string) bool {
	for _, field := range strings.Fields(payload) {
		key, value, found := strings.Cut(field, "=")
		if !found || key != "gameEnded" {
			continue
		}
		ended, err := strconv.ParseBool(value)
		return err == nil && ended
	}
	return false
}
