package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envServerURL = "MEETSCRIBE_SERVER_URL"
	envLogLevel  = "MEETSCRIBE_LOG_LEVEL"
)

// applyEnv overlays environment overrides onto cfg. A .env file in the
// working directory is loaded first without clobbering existing variables.
func applyEnv(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf(".env present but not loadable: %v", err)})
		}
	}

	if raw := strings.TrimSpace(os.Getenv(envServerURL)); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("%s must be an absolute URL, got %q", envServerURL, raw)
		}
		cfg.Server.URL = raw
	}

	if raw := strings.TrimSpace(os.Getenv(envLogLevel)); raw != "" {
		cfg.Log.Level = raw
	}

	return warnings, nil
}
