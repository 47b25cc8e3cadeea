// Package doctor runs runtime readiness diagnostics for config, audio,
// server, credentials, and desktop tooling.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/auth"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/ipc"
)

// Status grades one check. Warnings degrade the experience without
// blocking recording or submission.
type Status string

const (
	StatusPass Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Status  Status
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when no check failed. Warnings do not fail the report.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if check.Status == StatusFail {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", check.Status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Pinger probes backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
	BaseURL() string
}

// CredentialStore reads the stored bearer token.
type CredentialStore interface {
	Token() (string, error)
	Path() string
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, server Pinger, creds CredentialStore) Report {
	checks := checkConfig(cfg)
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkServer(ctx, server))
	checks = append(checks, checkCredential(creds))
	checks = append(checks, checkSocketDir())

	if cfg.Config.Notify.Enable {
		checks = append(checks, checkBinary("busctl", "notifications available", StatusWarn))
	}
	if cfg.Config.Notify.CopyLink {
		checks = append(checks, checkCommand(cfg.Config.Notify.Clipboard.Argv, "clipboard_cmd", StatusWarn))
	}

	return Report{Checks: checks}
}

// checkConfig reports the resolved config path plus any parse warnings.
func checkConfig(cfg config.Loaded) []Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("no file at %q, using defaults", cfg.Path)
	}
	checks := []Check{{Name: "config", Status: StatusPass, Message: message}}

	for _, warning := range cfg.Warnings {
		text := warning.Message
		if warning.Line > 0 {
			text = fmt.Sprintf("line %d: %s", warning.Line, warning.Message)
		}
		checks = append(checks, Check{Name: "config", Status: StatusWarn, Message: text})
	}
	return checks
}

// checkAudioSelection runs live device selection to surface backend and
// fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Backend, cfg.Audio.Device)
	if err != nil {
		return Check{Name: "audio.device", Status: StatusFail, Message: err.Error()}
	}
	if selection.Warning != "" {
		return Check{Name: "audio.device", Status: StatusWarn, Message: fmt.Sprintf("selected %q (%s)", selection.Device.ID, selection.Warning)}
	}
	return Check{Name: "audio.device", Status: StatusPass, Message: fmt.Sprintf("selected %q", selection.Device.ID)}
}

// checkServer probes the backend health endpoint.
func checkServer(ctx context.Context, server Pinger) Check {
	if server == nil {
		return Check{Name: "server", Status: StatusFail, Message: "server.url is empty"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := server.Ping(probeCtx); err != nil {
		return Check{Name: "server", Status: StatusFail, Message: fmt.Sprintf("%s unreachable: %v", server.BaseURL(), err)}
	}
	return Check{Name: "server", Status: StatusPass, Message: fmt.Sprintf("reachable at %s", server.BaseURL())}
}

// checkCredential reports token presence and, for JWTs, expiry.
func checkCredential(creds CredentialStore) Check {
	token, err := creds.Token()
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return Check{Name: "credential", Status: StatusWarn, Message: "not logged in; run login before submitting"}
		}
		return Check{Name: "credential", Status: StatusFail, Message: fmt.Sprintf("read token: %v", err)}
	}

	expiry, ok := auth.TokenExpiry(token)
	if !ok {
		return Check{Name: "credential", Status: StatusPass, Message: fmt.Sprintf("token present at %s", creds.Path())}
	}
	if time.Now().After(expiry) {
		return Check{Name: "credential", Status: StatusWarn, Message: fmt.Sprintf("token expired %s", expiry.Format(time.RFC3339))}
	}
	return Check{Name: "credential", Status: StatusPass, Message: fmt.Sprintf("token valid until %s", expiry.Format(time.RFC3339))}
}

// checkSocketDir verifies the single-instance socket directory is usable.
func checkSocketDir() Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "socket", Status: StatusFail, Message: err.Error()}
	}

	dir := filepath.Dir(path)
	probe, err := os.CreateTemp(dir, ".meetscribe-doctor-*")
	if err != nil {
		return Check{Name: "socket", Status: StatusFail, Message: fmt.Sprintf("runtime dir %s not writable: %v", dir, err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return Check{Name: "socket", Status: StatusPass, Message: fmt.Sprintf("runtime dir %s writable", dir)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string, onMissing Status) Check {
	if len(argv) == 0 {
		return Check{Name: name, Status: onMissing, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name), onMissing)
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string, onMissing Status) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Status: onMissing, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Status: StatusPass, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
