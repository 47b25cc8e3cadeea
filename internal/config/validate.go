package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	serverURL := strings.TrimSpace(cfg.Server.URL)
	if serverURL == "" {
		return nil, fmt.Errorf("server.url must not be empty")
	}
	parsed, err := url.Parse(serverURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("server.url must be an absolute URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server.url scheme must be http or https")
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("server.timeout_seconds must be > 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Audio.Backend))
	if backend == "" {
		return nil, fmt.Errorf("audio.backend must not be empty")
	}
	if backend != "pulse" && backend != "portaudio" {
		return nil, fmt.Errorf("audio.backend must be one of: pulse, portaudio")
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		return nil, fmt.Errorf("audio.channels must be 1 or 2")
	}
	if cfg.Audio.SampleRate < 8000 {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("audio.sample_rate %d is below 8000 Hz; transcription quality degrades", cfg.Audio.SampleRate),
		})
	}

	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}
	if cfg.Notify.CopyLink && len(cfg.Notify.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("notify.clipboard_cmd must not be empty when notify.copy_link=true")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("log.level %q not recognized; falling back to info", cfg.Log.Level),
		})
	}

	for _, email := range cfg.Submit.DefaultParticipants {
		if !looksLikeEmail(email) {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("submit.default_participants entry %q does not look like an email; it will be rejected at submit time", email),
			})
		}
	}

	return warnings, nil
}

// looksLikeEmail is a coarse shape check for config warnings; authoritative
// validation happens when the address enters a draft.
func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
