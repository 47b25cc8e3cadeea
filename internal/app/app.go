// Package app dispatches CLI commands: the foreground record session,
// file uploads, IPC forwarding to a live session, and the account and
// diagnostic commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/api"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/auth"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/cli"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/doctor"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/ipc"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/logging"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/notify"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("meetscribe"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("meetscribe"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(logging.ParseLevel(cfgLoaded.Config.Log.Level))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRecord:
		return r.commandRecord(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandUpload:
		return r.commandUpload(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandPause:
		return r.forwardOrFail(ctx, "pause")
	case cli.CommandResume:
		return r.forwardOrFail(ctx, "resume")
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, "cancel")
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config)
	case cli.CommandLogin:
		return r.commandLogin(parsed)
	case cli.CommandLogout:
		return r.commandLogout()
	case cli.CommandWatch:
		return r.commandWatch(ctx, cfgLoaded.Config, parsed.MeetingID)
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, cfgLoaded)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDoctor(ctx context.Context, cfgLoaded config.Loaded) int {
	store, err := auth.NewStore("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var server doctor.Pinger
	if strings.TrimSpace(cfgLoaded.Config.Server.URL) != "" {
		server = api.NewClient(cfgLoaded.Config.Server.URL, storeToken(store), serverTimeout(cfgLoaded.Config))
	}

	report := doctor.Run(ctx, cfgLoaded, server, store)
	fmt.Fprintln(r.Stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	devices, err := audio.ListDevices(ctx, cfg.Audio.Backend)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, statusLine(resp))
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// statusLine renders a session status response as "state elapsed", with the
// elapsed clock omitted while idle.
func statusLine(resp ipc.Response) string {
	if resp.State == "" || resp.State == "idle" {
		return "idle"
	}
	return fmt.Sprintf("%s %s", resp.State, notify.FormatElapsed(resp.Elapsed))
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active recording session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends one command to a live session socket. The boolean
// reports whether a session handled the command; a missing socket or a
// refused connection means no session owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// storeToken adapts the credential store to the transport's token hook.
// Read failures surface later as unauthenticated requests, not here.
func storeToken(store *auth.Store) api.TokenFunc {
	return func() string {
		token, err := store.Token()
		if err != nil {
			return ""
		}
		return token
	}
}

func serverTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.Server.TimeoutSeconds) * time.Second
}

func (r Runner) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}
