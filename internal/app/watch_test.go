package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/api"
)

type meetingStep struct {
	meeting *api.Meeting
	err     error
}

// fakeMeetings plays back a scripted sequence of GetMeeting results,
// repeating the final step once the script runs out.
type fakeMeetings struct {
	steps []meetingStep
	calls int
}

func (f *fakeMeetings) GetMeeting(_ context.Context, _ string) (*api.Meeting, error) {
	step := f.steps[len(f.steps)-1]
	if f.calls < len(f.steps) {
		step = f.steps[f.calls]
	}
	f.calls++
	return step.meeting, step.err
}

func fastPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Millisecond
	policy.MaxInterval = 5 * time.Millisecond
	policy.MaxElapsedTime = time.Second
	return policy
}

func TestWatchMeetingReturnsTerminalStatus(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{meeting: &api.Meeting{ID: "m1", Status: api.StatusProcessing}},
		{meeting: &api.Meeting{ID: "m1", Status: api.StatusProcessing}},
		{meeting: &api.Meeting{ID: "m1", Status: "completed"}},
	}}

	meeting, err := watchMeeting(context.Background(), transport, "m1", fastPolicy())
	require.NoError(t, err)
	require.Equal(t, "completed", meeting.Status)
	require.Equal(t, 3, transport.calls)
}

func TestWatchMeetingRetriesTransientFailures(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{err: errors.New("dial tcp: connection refused")},
		{err: &api.ServerError{StatusCode: 503, Message: "maintenance"}},
		{meeting: &api.Meeting{ID: "m1", Status: "completed"}},
	}}

	meeting, err := watchMeeting(context.Background(), transport, "m1", fastPolicy())
	require.NoError(t, err)
	require.Equal(t, "completed", meeting.Status)
	require.Equal(t, 3, transport.calls)
}

func TestWatchMeetingStopsOnClientError(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{err: &api.ServerError{StatusCode: 404, Message: "meeting not found"}},
	}}

	_, err := watchMeeting(context.Background(), transport, "m1", fastPolicy())
	require.Error(t, err)
	require.Equal(t, 1, transport.calls)

	var serverErr *api.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, 404, serverErr.StatusCode)
}

func TestWatchMeetingRejectsEmptyID(t *testing.T) {
	transport := &fakeMeetings{}

	_, err := watchMeeting(context.Background(), transport, "   ", fastPolicy())
	require.Error(t, err)
	require.Contains(t, err.Error(), "meeting id is empty")
	require.Equal(t, 0, transport.calls)
}

func TestWatchMeetingGivesUpWhileStillProcessing(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{meeting: &api.Meeting{ID: "m1", Status: api.StatusProcessing}},
	}}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Millisecond
	policy.MaxInterval = 2 * time.Millisecond
	policy.MaxElapsedTime = 20 * time.Millisecond

	_, err := watchMeeting(context.Background(), transport, "m1", policy)
	require.ErrorIs(t, err, errStillProcessing)
	require.GreaterOrEqual(t, transport.calls, 2)
}

func TestWatchMeetingStopsWhenContextCancelled(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{meeting: &api.Meeting{ID: "m1", Status: api.StatusProcessing}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := watchMeeting(ctx, transport, "m1", watchPolicy())
	require.Error(t, err)
	require.LessOrEqual(t, transport.calls, 1)
}

func TestWatchAndPrintPrintsTerminalStatus(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{meeting: &api.Meeting{ID: "m1", Status: "completed"}},
	}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.watchAndPrint(context.Background(), transport, "m1")
	require.Equal(t, 0, exitCode)
	require.Equal(t, "completed\n", stdout.String())
	require.Contains(t, stderr.String(), "watching meeting m1")
}

func TestWatchAndPrintReportsRejection(t *testing.T) {
	transport := &fakeMeetings{steps: []meetingStep{
		{err: &api.ServerError{StatusCode: 404, Message: "meeting not found"}},
	}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.watchAndPrint(context.Background(), transport, "m1")
	require.Equal(t, 1, exitCode)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "meeting not found")
}
