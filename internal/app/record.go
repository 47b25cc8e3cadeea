package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/api"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/auth"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/capture"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/cli"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/ipc"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/notify"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/output"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/session"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/submit"
)

// commandRecord owns the foreground session: it holds the single-instance
// socket, captures until a stop command or signal, then gathers metadata
// and submits. Context cancellation seals the recording like a stop, so
// the submit phase runs on a fresh context afterwards.
func (r Runner) commandRecord(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: a recording session is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	releaseSocket := func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}
	defer releaseSocket()

	opts := audio.Options{
		Backend:    cfg.Audio.Backend,
		Device:     cfg.Audio.Device,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}
	if parsed.Device != "" {
		opts.Device = parsed.Device
	}

	recorder := capture.New(opts, nil)
	desktop := notify.NewDesktop(cfg.Notify, logger)
	controller := session.NewController(logger, recorder, desktop)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)
	serverCancel()
	serverErr := <-serverErrCh

	// The session is over; free the socket before the interactive phase so
	// sibling invocations see idle instead of a dead listener.
	releaseSocket()

	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if result.Cancelled || result.Recording == nil {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}

	// ctx may already be cancelled when a signal ended the capture; the
	// submit still has to go out, bounded by the transport timeout.
	submitCtx := context.Background()

	meta, err := r.gatherMetadata(parsed, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		desktop.Dismiss(submitCtx)
		return 1
	}

	rec := result.Recording
	draft := submit.Draft{
		Title:        meta.Title,
		Date:         meta.Date,
		Participants: meta.Participants,
		Payload:      audio.EncodeWAV(rec.Data, rec.Format),
		MimeType:     rec.MimeType,
		Filename:     recordingFilename(result.StartedAt),
		Duration:     rec.Duration,
	}

	return r.submitDraft(submitCtx, cfg, draft, desktop, logger, parsed.Watch)
}

// submitDraft drives one draft through the coordinator and reports the
// outcome on every channel: stdout, notification, clipboard, and the
// optional status watch. Shared by record and upload.
func (r Runner) submitDraft(
	ctx context.Context,
	cfg config.Config,
	draft submit.Draft,
	desktop *notify.Desktop,
	logger *slog.Logger,
	watch bool,
) int {
	store, err := auth.NewStore("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	client := api.NewClient(cfg.Server.URL, storeToken(store), serverTimeout(cfg))
	coordinator := submit.New(client)

	if err := coordinator.SetDraft(draft); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	outcome, err := coordinator.Submit(ctx, func(percent int) {
		desktop.SubmitProgress(ctx, percent)
	})
	if err != nil {
		desktop.SubmitFailed(ctx, submitFailureReason(err))
		logger.Error("submit failed", "error", err, "server_rejection", api.IsServerRejection(err))
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	desktop.Submitted(ctx, outcome.MeetingID)
	logger.Info("meeting created", "meeting_id", outcome.MeetingID, "status", outcome.Status)
	fmt.Fprintln(r.Stdout, outcome.MeetingID)

	if cfg.Notify.CopyLink {
		if err := output.NewClipboard(cfg.Notify).Copy(ctx, outcome.MeetingID); err != nil {
			logger.Warn("clipboard copy failed", "error", err)
		}
	}

	if watch {
		return r.watchAndPrint(ctx, client, outcome.MeetingID)
	}
	return 0
}

// submitFailureReason folds a submit error into notification text. Server
// rejections keep the server's message verbatim.
func submitFailureReason(err error) string {
	var validationErr *submit.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.Message != "" {
			return serverErr.Message
		}
		return serverErr.Error()
	}

	return "Could not reach the server"
}

func recordingFilename(startedAt time.Time) string {
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return "meeting-" + startedAt.Format("20060102-150405") + ".wav"
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.Device,
		"elapsed_seconds", result.Elapsed,
		"recording_bytes", sessionRecordingBytes(result),
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func sessionRecordingBytes(result session.Result) int {
	if result.Recording == nil {
		return 0
	}
	return len(result.Recording.Data)
}
