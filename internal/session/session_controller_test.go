package session

import (
	"context"
	"testing"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/fsm"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/ipc"
	"github.com/stretchr/testify/require"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.elapsed = 12
	ctrl := NewController(nil, recorder, &fakeNotifier{})

	status := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, 12, status.Elapsed)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleStateGuards(t *testing.T) {
	recorder := newFakeRecorder()
	ctrl := NewController(nil, recorder, &fakeNotifier{})

	stopFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, stopFromIdle.OK)
	require.Contains(t, stopFromIdle.Error, "cannot stop from state idle")

	cancelFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.False(t, cancelFromIdle.OK)
	require.Contains(t, cancelFromIdle.Error, "cannot cancel from state idle")

	pauseFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "pause"})
	require.False(t, pauseFromIdle.OK)
	require.Contains(t, pauseFromIdle.Error, "cannot pause from state idle")

	resumeFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "resume"})
	require.False(t, resumeFromIdle.OK)
	require.Contains(t, resumeFromIdle.Error, "cannot resume from state idle")

	recorder.setState(fsm.StateRecording)
	resumeFromRecording := ctrl.Handle(context.Background(), ipc.Request{Command: "resume"})
	require.False(t, resumeFromRecording.OK)
	require.Contains(t, resumeFromRecording.Error, "cannot resume from state recording")

	recorder.setState(fsm.StatePaused)
	pauseFromPaused := ctrl.Handle(context.Background(), ipc.Request{Command: "pause"})
	require.False(t, pauseFromPaused.OK)
	require.Contains(t, pauseFromPaused.Error, "cannot pause from state paused")
}

func TestRequestStopAndCancelAlreadyRequested(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.setState(fsm.StateRecording)
	ctrl := NewController(nil, recorder, &fakeNotifier{})

	ctrl.actions <- actionStop
	stop := ctrl.requestStop()
	require.True(t, stop.OK)
	require.Equal(t, "stop already requested", stop.Message)

	<-ctrl.actions
	ctrl.actions <- actionCancel
	cancel := ctrl.requestCancel()
	require.True(t, cancel.OK)
	require.Equal(t, "cancel already requested", cancel.Message)
}

func TestGuardRejectionsDoNotTouchRecorder(t *testing.T) {
	recorder := newFakeRecorder()
	ctrl := NewController(nil, recorder, &fakeNotifier{})

	_ = ctrl.Handle(context.Background(), ipc.Request{Command: "pause"})
	_ = ctrl.Handle(context.Background(), ipc.Request{Command: "resume"})
	require.Equal(t, int32(0), recorder.pauses.Load())
	require.Equal(t, int32(0), recorder.resumes.Load())
}

func TestResultTimestampsAdvance(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.rec = sealed(1)
	ctrl := NewController(nil, recorder, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	require.True(t, ctrl.Handle(ctx, ipc.Request{Command: "stop"}).OK)
	result := <-resultCh

	require.False(t, result.StartedAt.IsZero())
	require.False(t, result.FinishedAt.IsZero())
	require.True(t, result.FinishedAt.After(result.StartedAt) || result.FinishedAt.Equal(result.StartedAt))
	require.LessOrEqual(t, result.FinishedAt.Sub(result.StartedAt), 2*time.Second)
}
