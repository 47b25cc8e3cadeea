// Package config resolves, parses, validates, and defaults meetscribe configuration.
package config

// Config is the fully materialized runtime configuration used by meetscribe.
type Config struct {
	Server ServerConfig
	Audio  AudioConfig
	Submit SubmitConfig
	Notify NotifyConfig
	Log    LogConfig
}

// ServerConfig locates the meeting backend and bounds request time.
type ServerConfig struct {
	URL            string
	TimeoutSeconds int
}

// AudioConfig selects the capture backend, device, and sample format.
type AudioConfig struct {
	Backend    string
	Device     string
	SampleRate int
	Channels   int
}

// SubmitConfig holds draft values seeded before the user is prompted.
type SubmitConfig struct {
	DefaultParticipants []string
}

// NotifyConfig controls desktop notifications and clipboard hand-off.
type NotifyConfig struct {
	Enable    bool
	AppName   string
	CopyLink  bool
	Clipboard CommandConfig
}

// LogConfig controls the JSONL log output.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
