// Package notify surfaces recording and submission progress as desktop
// notifications. One replaceable notification tracks the whole session.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
)

const (
	// liveTimeoutMS keeps in-progress states on screen until replaced.
	liveTimeoutMS = 300000
	// outcomeTimeoutMS lets terminal states fade on their own.
	outcomeTimeoutMS = 5000
)

// Desktop posts freedesktop notifications over DBus. The zero ID means no
// notification has been placed yet; afterwards every update replaces the
// same server-side notification.
type Desktop struct {
	cfg    config.NotifyConfig
	logger *slog.Logger

	mu             sync.Mutex
	notificationID uint32
}

// NewDesktop creates a notification controller from config.
func NewDesktop(cfg config.NotifyConfig, logger *slog.Logger) *Desktop {
	return &Desktop{cfg: cfg, logger: logger}
}

// RecordingStarted announces a live capture session.
func (d *Desktop) RecordingStarted(ctx context.Context, device string) {
	d.post(ctx, startedText(device), liveTimeoutMS)
}

// RecordingPaused announces a paused session with the frozen elapsed time.
func (d *Desktop) RecordingPaused(ctx context.Context, elapsed int) {
	d.post(ctx, pausedText(elapsed), liveTimeoutMS)
}

// RecordingResumed announces that capture continues.
func (d *Desktop) RecordingResumed(ctx context.Context, elapsed int) {
	d.post(ctx, resumedText(elapsed), liveTimeoutMS)
}

// RecordingStopped announces the sealed recording length.
func (d *Desktop) RecordingStopped(ctx context.Context, elapsed int) {
	d.post(ctx, stoppedText(elapsed), outcomeTimeoutMS)
}

// RecordingCancelled announces a discarded session.
func (d *Desktop) RecordingCancelled(ctx context.Context) {
	d.post(ctx, textCancelled, outcomeTimeoutMS)
}

// RecordingFailed announces a capture failure with a short reason.
func (d *Desktop) RecordingFailed(ctx context.Context, reason string) {
	d.post(ctx, failedText(reason), outcomeTimeoutMS)
}

// SubmitProgress announces upload progress as a percentage.
func (d *Desktop) SubmitProgress(ctx context.Context, percent int) {
	d.post(ctx, progressText(percent), liveTimeoutMS)
}

// Submitted announces the created meeting.
func (d *Desktop) Submitted(ctx context.Context, meetingID string) {
	d.post(ctx, submittedText(meetingID), outcomeTimeoutMS)
}

// SubmitFailed announces an upload failure with a short reason.
func (d *Desktop) SubmitFailed(ctx context.Context, reason string) {
	d.post(ctx, failedText(reason), outcomeTimeoutMS)
}

// Dismiss closes the session notification when one is on screen.
func (d *Desktop) Dismiss(ctx context.Context) {
	if !d.cfg.Enable {
		return
	}

	d.mu.Lock()
	id := d.notificationID
	d.notificationID = 0
	d.mu.Unlock()

	if id == 0 {
		return
	}
	d.run(ctx, func(ctx context.Context) error {
		return desktopDismiss(ctx, id)
	})
}

// post sends one replace-by-ID notification through busctl.
func (d *Desktop) post(ctx context.Context, text string, timeoutMS int) {
	if !d.cfg.Enable {
		return
	}

	d.mu.Lock()
	replaceID := d.notificationID
	d.mu.Unlock()

	appName := strings.TrimSpace(d.cfg.AppName)
	if appName == "" {
		appName = "meetscribe"
	}

	d.run(ctx, func(ctx context.Context) error {
		id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.notificationID = id
		d.mu.Unlock()
		return nil
	})
}

// run executes a notification operation with a bounded timeout. Failures
// are logged and swallowed; a broken notification daemon never blocks the
// recording pipeline.
func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.log("notification dispatch failed", err)
	}
}

func (d *Desktop) log(message string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(message, "error", err.Error())
}
