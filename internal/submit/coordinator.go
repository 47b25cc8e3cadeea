// Package submit drives one finished recording draft through validation
// and the upload transport, with failure recovery that never discards
// user-entered fields.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/api"
)

// Phase is the coordinator's submission lifecycle state.
type Phase string

const (
	PhaseEditable   Phase = "editable"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

// ErrSubmitInProgress rejects a second submit while one is in flight. The
// in-flight request is neither queued behind nor cancelled.
var ErrSubmitInProgress = errors.New("a submission is already in flight")

// ValidationError lists the draft fields that block submission. It is
// returned before any network activity.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("draft is missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Draft is the mutable metadata for one finished recording. Payload holds
// upload-ready container bytes; the coordinator transmits it untouched.
type Draft struct {
	Title        string
	Date         time.Time
	Participants []string
	Payload      []byte
	MimeType     string
	Filename     string
	Duration     int
}

// Outcome reports a successful submission.
type Outcome struct {
	MeetingID string
	Status    string
}

// Transport is the upload collaborator.
type Transport interface {
	CreateMeeting(ctx context.Context, input api.CreateMeetingInput) (*api.Meeting, error)
}

// Coordinator owns one draft and its submission lifecycle. The draft stays
// mutable until a submission starts, becomes an immutable snapshot while
// submitting, and is cleared only on success.
type Coordinator struct {
	transport Transport

	mu    sync.Mutex
	phase Phase
	draft Draft
}

// New constructs a coordinator in the editable phase with an empty draft.
func New(transport Transport) *Coordinator {
	return &Coordinator{transport: transport, phase: PhaseEditable}
}

// Phase returns the current lifecycle phase snapshot.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Draft returns a snapshot of the current draft.
func (c *Coordinator) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.draft
	snapshot.Participants = append([]string(nil), c.draft.Participants...)
	return snapshot
}

// SetDraft replaces the draft and re-arms the coordinator for editing.
// Rejected while a submission is in flight.
func (c *Coordinator) SetDraft(draft Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSubmitting {
		return ErrSubmitInProgress
	}
	c.draft = draft
	c.phase = PhaseEditable
	return nil
}

// Submit validates the draft locally, then transmits it. Validation
// failures and in-flight rejection produce no network call. On transport
// failure the coordinator reverts to editable with every field preserved;
// callers distinguish network failures from application-level rejection
// via api.IsServerRejection. There is no automatic retry.
func (c *Coordinator) Submit(ctx context.Context, progress api.ProgressFunc) (*Outcome, error) {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if err := validateDraft(c.draft); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	draft := c.draft
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	meeting, err := c.transport.CreateMeeting(ctx, api.CreateMeetingInput{
		Title:        draft.Title,
		Date:         draft.Date,
		Participants: draft.Participants,
		Recording:    draft.Payload,
		MimeType:     draft.MimeType,
		Filename:     draft.Filename,
		Duration:     draft.Duration,
		Progress:     progress,
	})
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseEditable
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.phase = PhaseSubmitted
	c.draft = Draft{}
	c.mu.Unlock()

	return &Outcome{MeetingID: meeting.ID, Status: meeting.Status}, nil
}

// validateDraft checks the local preconditions: a non-empty title, at
// least one participant, and a recording payload.
func validateDraft(draft Draft) error {
	var missing []string
	if strings.TrimSpace(draft.Title) == "" {
		missing = append(missing, "title")
	}
	if len(draft.Participants) == 0 {
		missing = append(missing, "participants")
	}
	if len(draft.Payload) == 0 {
		missing = append(missing, "recording")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
