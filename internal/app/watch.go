package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/api"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/auth"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
)

// MeetingReader reads one meeting's processing status.
type MeetingReader interface {
	GetMeeting(ctx context.Context, id string) (*api.Meeting, error)
}

var errStillProcessing = errors.New("meeting is still processing")

func (r Runner) commandWatch(ctx context.Context, cfg config.Config, meetingID string) int {
	store, err := auth.NewStore("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	client := api.NewClient(cfg.Server.URL, storeToken(store), serverTimeout(cfg))
	return r.watchAndPrint(ctx, client, meetingID)
}

func (r Runner) watchAndPrint(ctx context.Context, transport MeetingReader, meetingID string) int {
	fmt.Fprintf(r.Stderr, "watching meeting %s...\n", meetingID)

	meeting, err := watchMeeting(ctx, transport, meetingID, watchPolicy())
	if err != nil {
		if errors.Is(err, errStillProcessing) {
			fmt.Fprintf(r.Stderr, "error: meeting %s is still processing; try again later\n", meetingID)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(r.Stdout, meeting.Status)
	return 0
}

// watchMeeting polls until the meeting leaves the processing status or the
// policy gives up. Network failures and server 5xx responses are retried;
// a 4xx rejection stops the poll immediately.
func watchMeeting(ctx context.Context, transport MeetingReader, meetingID string, policy backoff.BackOff) (*api.Meeting, error) {
	if strings.TrimSpace(meetingID) == "" {
		return nil, errors.New("meeting id is empty")
	}

	operation := func() (*api.Meeting, error) {
		meeting, err := transport.GetMeeting(ctx, meetingID)
		if err != nil {
			var serverErr *api.ServerError
			if errors.As(err, &serverErr) && serverErr.StatusCode < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if meeting.Status == api.StatusProcessing {
			return nil, errStillProcessing
		}
		return meeting, nil
	}

	return backoff.RetryWithData(operation, backoff.WithContext(policy, ctx))
}

// watchPolicy paces status polls: quick at first, then easing off, giving
// up after ten minutes.
func watchPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 15 * time.Second
	policy.MaxElapsedTime = 10 * time.Minute
	return policy
}
