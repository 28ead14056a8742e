package config

const (
	defaultReplayDir              = "~/replays"
	defaultLogDir                 = "~/.local/share/replayrig/logs"
	defaultTempDir                = "~/.local/share/replayrig/tmp"
	defaultEngineBinary           = "slippi-playback"
	defaultShutdownGraceMillis    = 2000
	defaultRecorderURL            = "ws://127.0.0.1:4455"
	defaultRecorderConnectTimeout = 10
	defaultRecorderCommandTimeout = 15
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults. The
// orchestration defaults are deliberately conservative: recording disabled,
// entries paused rather than stopped between files.
func Default() Config {
	return Config{
		Paths: Paths{
			ReplayDir: defaultReplayDir,
			LogDir:    defaultLogDir,
			TempDir:   defaultTempDir,
		},
		Engine: Engine{
			Binary:              defaultEngineBinary,
			ShutdownGraceMillis: defaultShutdownGraceMillis,
		},
		Recorder: Recorder{
			URL:            defaultRecorderURL,
			ConnectTimeout: defaultRecorderConnectTimeout,
			CommandTimeout: defaultRecorderCommandTimeout,
		},
		Orchestration: Orchestration{
			RecordingEnabled:    false,
			PauseBetweenEntries: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Sessions:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
