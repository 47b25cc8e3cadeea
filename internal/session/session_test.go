package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/capture"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/fsm"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/ipc"
)

type fakeNotifier struct {
	started   atomic.Int32
	paused    atomic.Int32
	resumed   atomic.Int32
	stopped   atomic.Int32
	cancelled atomic.Int32
	failed    atomic.Int32

	mu         sync.Mutex
	lastReason string
}

func (f *fakeNotifier) RecordingStarted(context.Context, string) { f.started.Add(1) }
func (f *fakeNotifier) RecordingPaused(context.Context, int)     { f.paused.Add(1) }
func (f *fakeNotifier) RecordingResumed(context.Context, int)    { f.resumed.Add(1) }
func (f *fakeNotifier) RecordingStopped(context.Context, int)    { f.stopped.Add(1) }
func (f *fakeNotifier) RecordingCancelled(context.Context)       { f.cancelled.Add(1) }

func (f *fakeNotifier) RecordingFailed(_ context.Context, reason string) {
	f.failed.Add(1)
	f.mu.Lock()
	f.lastReason = reason
	f.mu.Unlock()
}

func (f *fakeNotifier) failReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReason
}

type fakeRecorder struct {
	mu      sync.Mutex
	state   fsm.State
	elapsed int

	startErr error
	stopErr  error
	rec      *capture.Recording

	pauses  atomic.Int32
	resumes atomic.Int32
	stops   atomic.Int32
	cancels atomic.Int32
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{state: fsm.StateIdle}
}

func (f *fakeRecorder) setState(s fsm.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeRecorder) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.setState(fsm.StateRecording)
	return nil
}

func (f *fakeRecorder) Pause() {
	f.pauses.Add(1)
	f.setState(fsm.StatePaused)
}

func (f *fakeRecorder) Resume() {
	f.resumes.Add(1)
	f.setState(fsm.StateRecording)
}

func (f *fakeRecorder) Stop() (*capture.Recording, error) {
	f.stops.Add(1)
	f.setState(fsm.StateIdle)
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.rec, nil
}

func (f *fakeRecorder) Cancel() error {
	f.cancels.Add(1)
	f.setState(fsm.StateIdle)
	return nil
}

func (f *fakeRecorder) State() fsm.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeRecorder) Elapsed() int { return f.elapsed }

func (f *fakeRecorder) Device() audio.Device {
	return audio.Device{ID: "fake-mic", Description: "Fake Microphone"}
}

func sealed(duration int) *capture.Recording {
	return &capture.Recording{
		Data:     []byte{1, 2, 3, 4},
		Format:   audio.Format{SampleRate: 16000, Channels: 1},
		Device:   audio.Device{ID: "fake-mic", Description: "Fake Microphone"},
		Duration: duration,
		MimeType: capture.MimeTypeWAV,
	}
}

func TestControllerStopSealsRecording(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.rec = sealed(42)
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, recorder, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: "stop"})
	if !resp.OK {
		t.Fatalf("stop response not OK: %+v", resp)
	}

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.Recording == nil {
		t.Fatal("expected a sealed recording")
	}
	if result.Recording.Duration != 42 || result.Elapsed != 42 {
		t.Fatalf("unexpected durations: recording=%d elapsed=%d", result.Recording.Duration, result.Elapsed)
	}
	if result.Device != "Fake Microphone" {
		t.Fatalf("unexpected device: %q", result.Device)
	}
	if result.State != fsm.StateIdle {
		t.Fatalf("expected idle state after stop, got %s", result.State)
	}
	if recorder.stops.Load() != 1 {
		t.Fatalf("expected one recorder stop, got %d", recorder.stops.Load())
	}
	if notifier.started.Load() == 0 || notifier.stopped.Load() == 0 {
		t.Fatalf("expected start and stop notifications, got %+v", notifier)
	}
	if notifier.cancelled.Load() != 0 {
		t.Fatalf("expected no cancel notification on stop")
	}
}

func TestControllerCancelDiscardsRecording(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.rec = sealed(7)
	recorder.elapsed = 7
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, recorder, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: "cancel"})
	if !resp.OK {
		t.Fatalf("cancel response not OK: %+v", resp)
	}

	result := <-resultCh
	if !result.Cancelled {
		t.Fatalf("expected cancelled result, got %+v", result)
	}
	if result.Recording != nil {
		t.Fatal("cancel must not hand back a recording")
	}
	if result.Elapsed != 7 {
		t.Fatalf("expected elapsed 7 on cancel, got %d", result.Elapsed)
	}
	if state := ctrl.State(); state != fsm.StateIdle {
		t.Fatalf("expected idle state after cancel, got %s", state)
	}
	if recorder.cancels.Load() != 1 {
		t.Fatalf("expected one recorder cancel, got %d", recorder.cancels.Load())
	}
	if recorder.stops.Load() != 0 {
		t.Fatalf("expected no recorder stop on cancel")
	}
	if notifier.cancelled.Load() == 0 {
		t.Fatalf("expected cancel notification")
	}
	if notifier.stopped.Load() != 0 {
		t.Fatalf("expected no stop notification on cancel")
	}
}

func TestControllerSignalSealsLikeStop(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.rec = sealed(3)
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, recorder, notifier)

	ctx, cancel := context.WithCancel(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	cancel()

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.Recording == nil {
		t.Fatal("expected the signal path to seal the recording")
	}
	if result.Cancelled {
		t.Fatal("signal stop must not report a cancelled session")
	}
	if notifier.stopped.Load() == 0 {
		t.Fatalf("expected stop notification on signal")
	}
}

func TestControllerPauseResumeRoundTrip(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.rec = sealed(10)
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, recorder, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)

	pause := ctrl.Handle(ctx, ipc.Request{Command: "pause"})
	if !pause.OK || pause.State != string(fsm.StatePaused) {
		t.Fatalf("pause response = %+v", pause)
	}
	if recorder.pauses.Load() != 1 {
		t.Fatalf("expected one recorder pause, got %d", recorder.pauses.Load())
	}

	resume := ctrl.Handle(ctx, ipc.Request{Command: "resume"})
	if !resume.OK || resume.State != string(fsm.StateRecording) {
		t.Fatalf("resume response = %+v", resume)
	}
	if recorder.resumes.Load() != 1 {
		t.Fatalf("expected one recorder resume, got %d", recorder.resumes.Load())
	}
	if notifier.paused.Load() != 1 || notifier.resumed.Load() != 1 {
		t.Fatalf("expected pause and resume notifications, got %+v", notifier)
	}

	// The session is still live after a pause/resume round trip.
	if !ctrl.Handle(ctx, ipc.Request{Command: "stop"}).OK {
		t.Fatal("stop after resume should succeed")
	}
	result := <-resultCh
	if result.Recording == nil {
		t.Fatal("expected a sealed recording after pause/resume")
	}
}

func TestControllerStopWhilePaused(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.rec = sealed(5)
	ctrl := NewController(nil, recorder, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	if !ctrl.Handle(ctx, ipc.Request{Command: "pause"}).OK {
		t.Fatal("pause should succeed while recording")
	}
	if !ctrl.Handle(ctx, ipc.Request{Command: "stop"}).OK {
		t.Fatal("stop should succeed while paused")
	}

	result := <-resultCh
	if result.Err != nil || result.Recording == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestControllerStartFailureNotifies(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"permission denied", audio.ErrPermissionDenied, "Microphone permission denied"},
		{"device unavailable", audio.ErrDeviceUnavailable, "No usable capture device"},
		{"other", errors.New("open pulse stream: boom"), "Unable to start recording"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newFakeRecorder()
			recorder.startErr = tt.err
			notifier := &fakeNotifier{}
			ctrl := NewController(nil, recorder, notifier)

			result := ctrl.Run(context.Background())
			if !errors.Is(result.Err, tt.err) {
				t.Fatalf("result error = %v, want %v", result.Err, tt.err)
			}
			if result.State != fsm.StateIdle {
				t.Fatalf("expected idle state after start failure, got %s", result.State)
			}
			if result.FinishedAt.IsZero() {
				t.Fatal("expected FinishedAt to be set")
			}
			if notifier.failed.Load() != 1 {
				t.Fatalf("expected one failure notification, got %d", notifier.failed.Load())
			}
			if got := notifier.failReason(); got != tt.reason {
				t.Fatalf("failure reason = %q, want %q", got, tt.reason)
			}
			if notifier.started.Load() != 0 {
				t.Fatal("expected no started notification after start failure")
			}
		})
	}
}

func TestControllerStopFailure(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.stopErr = errors.New("drain interrupted")
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, recorder, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	if !ctrl.Handle(ctx, ipc.Request{Command: "stop"}).OK {
		t.Fatal("stop request should be accepted")
	}

	result := <-resultCh
	if result.Err == nil {
		t.Fatal("expected stop failure to surface")
	}
	if result.Recording != nil {
		t.Fatal("expected no recording on stop failure")
	}
	if notifier.failed.Load() != 1 {
		t.Fatalf("expected one failure notification, got %d", notifier.failed.Load())
	}
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
