package playback

import "testing"

func TestParseLine(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		want  Event
		valid bool
	}{
		{"start", "[PLAYBACK_START]", Event{Type: EventPlaybackStart}, true},
		{"end natural", "[PLAYBACK_END] gameEnded=true", Event{Type: EventPlaybackEnd, GameEnded: true}, true},
		{"end skipped", "[PLAYBACK_END] gameEnded=false", Event{Type: EventPlaybackEnd}, true},
		{"end no payload", "[PLAYBACK_END]", Event{Type: EventPlaybackEnd}, true},
		{"queue empty", "[NO_GAME]", Event{Type: EventQueueEmpty}, true},
		{"frame", "[CURRENT_FRAME] 4812", Event{Type: EventCurrentFrame, Frame: 4812}, true},
		{"frame garbage", "[CURRENT_FRAME] abc", Event{}, false},
		{"file path", "[FILE_PATH] /replays/game_001.slp", Event{Type: EventFilePath, Path: "/replays/game_001.slp"}, true},
		{"file path empty", "[FILE_PATH]", Event{}, false},
		{"unknown tag", "[SOMETHING_ELSE] data", Event{}, false},
		{"plain log", "frame pacing warning", Event{}, false},
		{"whitespace", "   [PLAYBACK_START]   ", Event{Type: EventPlaybackStart}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseLine(tc.line)
			if ok != tc.valid {
				t.Fatalf("parseLine(%q) ok = %v, want %v", tc.line, ok, tc.valid)
			}
			if ok && got != tc.want {
				t.Errorf("parseLine(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseGameEndedIgnoresOtherFields(t *testing.T) {
	event, ok := parseLine("[PLAYBACK_END] frame=9000 gameEnded=true")
	if !ok || !event.GameEnded {
		t.Fatalf("expected natural end, got %+v ok=%v", event, ok)
	}
}
