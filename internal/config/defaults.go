package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:            "http://localhost:8080",
			TimeoutSeconds: 120,
		},
		Audio: AudioConfig{
			Backend:    "pulse",
			Device:     "default",
			SampleRate: 16000,
			Channels:   1,
		},
		Submit: SubmitConfig{},
		Notify: NotifyConfig{
			Enable:    true,
			AppName:   "meetscribe",
			CopyLink:  false,
			Clipboard: mustCommand("wl-copy --trim-newline"),
		},
		Log: LogConfig{Level: "info"},
	}
}
