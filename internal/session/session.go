// Package session coordinates one foreground recording lifecycle: capture
// control, IPC command handling, and desktop feedback.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/capture"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/fsm"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/ipc"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State      fsm.State
	Recording  *capture.Recording
	Elapsed    int
	Cancelled  bool
	Err        error
	Device     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder is the session-facing subset of capture behavior.
type Recorder interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	Stop() (*capture.Recording, error)
	Cancel() error
	State() fsm.State
	Elapsed() int
	Device() audio.Device
}

// Notifier is the session-facing subset of desktop notification behavior.
type Notifier interface {
	RecordingStarted(ctx context.Context, device string)
	RecordingPaused(ctx context.Context, elapsed int)
	RecordingResumed(ctx context.Context, elapsed int)
	RecordingStopped(ctx context.Context, elapsed int)
	RecordingCancelled(context.Context)
	RecordingFailed(ctx context.Context, reason string)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) RecordingStarted(context.Context, string) {}
func (noopNotifier) RecordingPaused(context.Context, int)     {}
func (noopNotifier) RecordingResumed(context.Context, int)    {}
func (noopNotifier) RecordingStopped(context.Context, int)    {}
func (noopNotifier) RecordingCancelled(context.Context)       {}
func (noopNotifier) RecordingFailed(context.Context, string)  {}

// Controller orchestrates one recording session and its side effects. The
// state machine itself lives in the recorder; the controller routes
// commands to it and reports transitions outward.
type Controller struct {
	logger   *slog.Logger
	recorder Recorder
	notifier Notifier

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, recorder Recorder, notifier Notifier) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Controller{
		logger:   logger,
		recorder: recorder,
		notifier: notifier,
		actions:  make(chan action, 1),
	}
}

// State returns the current recorder state snapshot.
func (c *Controller) State() fsm.State {
	return c.recorder.State()
}

// Run executes one owner lifecycle from start to stop/cancel/failure
// completion. Context cancellation (the signal path) seals the recording
// like an ordinary stop so the caller can still collect metadata and
// submit.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}

	if err := c.recorder.Start(ctx); err != nil {
		c.notifier.RecordingFailed(ctx, startFailureReason(err))
		c.logger.Error("recording start failed", "error", err)
		result.State = c.recorder.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	device := c.recorder.Device()
	result.Device = deviceLabel(device)
	c.notifier.RecordingStarted(ctx, result.Device)
	c.logger.Info("recording started", "device", device.ID)

	select {
	case <-ctx.Done():
		return c.seal(result)
	case a := <-c.actions:
		switch a {
		case actionCancel:
			result.Elapsed = c.recorder.Elapsed()
			_ = c.recorder.Cancel()
			c.notifier.RecordingCancelled(context.Background())
			c.logger.Info("recording cancelled", "elapsed", result.Elapsed)
			result.State = c.recorder.State()
			result.Cancelled = true
			result.FinishedAt = time.Now()
			return result
		case actionStop:
			return c.seal(result)
		default:
			_ = c.recorder.Cancel()
			result.State = c.recorder.State()
			result.Err = fmt.Errorf("unknown action %d", a)
			result.FinishedAt = time.Now()
			return result
		}
	}
}

// seal stops the recorder and packages the sealed recording into the
// result. Shared by the stop command and the signal path.
func (c *Controller) seal(result Result) Result {
	rec, err := c.recorder.Stop()
	if err != nil {
		c.notifier.RecordingFailed(context.Background(), "Unable to finish the recording")
		c.logger.Error("recording stop failed", "error", err)
		result.State = c.recorder.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}
	if rec != nil {
		result.Elapsed = rec.Duration
	}

	c.notifier.RecordingStopped(context.Background(), result.Elapsed)
	c.logger.Info("recording sealed", "elapsed", result.Elapsed, "bytes", recordingBytes(rec))
	result.State = c.recorder.State()
	result.Recording = rec
	result.FinishedAt = time.Now()
	return result
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return ipc.Response{OK: true, State: string(c.recorder.State()), Elapsed: c.recorder.Elapsed(), Message: "status"}
	case "pause":
		return c.requestPause(ctx)
	case "resume":
		return c.requestResume(ctx)
	case "stop":
		return c.requestStop()
	case "cancel":
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.recorder.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestPause applies a pause directly; pause does not end the session,
// so it never passes through the action channel.
func (c *Controller) requestPause(ctx context.Context) ipc.Response {
	state := c.recorder.State()
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot pause from state %s", state)}
	}

	c.recorder.Pause()
	elapsed := c.recorder.Elapsed()
	c.notifier.RecordingPaused(ctx, elapsed)
	return ipc.Response{OK: true, State: string(c.recorder.State()), Elapsed: elapsed, Message: "paused"}
}

// requestResume applies a resume directly, mirroring requestPause.
func (c *Controller) requestResume(ctx context.Context) ipc.Response {
	state := c.recorder.State()
	if state != fsm.StatePaused {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot resume from state %s", state)}
	}

	c.recorder.Resume()
	elapsed := c.recorder.Elapsed()
	c.notifier.RecordingResumed(ctx, elapsed)
	return ipc.Response{OK: true, State: string(c.recorder.State()), Elapsed: elapsed, Message: "resumed"}
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop() ipc.Response {
	state := c.recorder.State()
	if state != fsm.StateRecording && state != fsm.StatePaused {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Elapsed: c.recorder.Elapsed(), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Elapsed: c.recorder.Elapsed(), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.recorder.State()
	if state != fsm.StateRecording && state != fsm.StatePaused {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Elapsed: c.recorder.Elapsed(), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Elapsed: c.recorder.Elapsed(), Message: "cancel already requested"}
	}
}

// startFailureReason maps capture start errors to user-facing text.
func startFailureReason(err error) string {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "Microphone permission denied"
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "No usable capture device"
	default:
		return "Unable to start recording"
	}
}

func deviceLabel(device audio.Device) string {
	if device.Description != "" {
		return device.Description
	}
	return device.ID
}

func recordingBytes(rec *capture.Recording) int {
	if rec == nil {
		return 0
	}
	return len(rec.Data)
}
