// Package api is the HTTP client for the meeting service: one multipart
// upload per finished recording, plus meeting status reads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Multipart field names expected by the meeting endpoint.
const (
	fieldRecording    = "recording"
	fieldTitle        = "title"
	fieldDate         = "date"
	fieldParticipants = "participants"
	fieldDuration     = "duration"
)

const maxErrorBody = 1 << 20

// Meeting is the server's meeting resource.
type Meeting struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StatusProcessing is the status a freshly created meeting carries until
// server-side processing finishes.
const StatusProcessing = "processing"

type meetingEnvelope struct {
	Meeting Meeting `json:"meeting"`
}

type errorEnvelope struct {
	Message string `json:"message"`
}

// ServerError is an application-level rejection: the server answered with a
// non-2xx status and, usually, a message body.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("server rejected request (status %d): %s", e.StatusCode, e.Message)
}

// IsServerRejection reports whether err is an application-level rejection
// rather than a transport failure.
func IsServerRejection(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}

// TokenFunc supplies the current bearer credential. Empty means no
// credential is attached.
type TokenFunc func() string

// Client talks to one meeting service endpoint.
type Client struct {
	baseURL string
	token   TokenFunc
	http    *http.Client
}

// NewClient constructs a client for baseURL. A nil token leaves requests
// unauthenticated; a non-positive timeout falls back to two minutes.
func NewClient(baseURL string, token TokenFunc, timeout time.Duration) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateMeetingInput is one finished recording plus its metadata.
type CreateMeetingInput struct {
	Title        string
	Date         time.Time
	Participants []string
	Recording    []byte
	MimeType     string
	Filename     string
	Duration     int
	Progress     ProgressFunc
}

// CreateMeeting uploads the recording and metadata as a single multipart
// request. When input.Progress is set it receives monotonically
// non-decreasing percentages from 0 to 100 as request bytes go out.
func (c *Client) CreateMeeting(ctx context.Context, input CreateMeetingInput) (*Meeting, error) {
	body, contentType, err := encodeMeetingForm(input)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader = body
	if input.Progress != nil {
		input.Progress(0)
		reqBody = newProgressReader(body, int64(body.Len()), input.Progress)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/meetings", reqBody)
	if err != nil {
		return nil, fmt.Errorf("build meeting request: %w", err)
	}
	req.ContentLength = int64(body.Len())
	req.Header.Set("Content-Type", contentType)
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send meeting request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeServerError(resp)
	}

	var envelope meetingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode meeting response: %w", err)
	}
	if envelope.Meeting.ID == "" {
		return nil, fmt.Errorf("meeting response missing id")
	}
	return &envelope.Meeting, nil
}

// GetMeeting reads one meeting resource by id.
func (c *Client) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("meeting id is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/meetings/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build meeting request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read meeting %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeServerError(resp)
	}

	var envelope meetingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode meeting response: %w", err)
	}
	if envelope.Meeting.ID == "" {
		return nil, fmt.Errorf("meeting response missing id")
	}
	return &envelope.Meeting, nil
}

// Ping probes the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeServerError(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

// BaseURL returns the endpoint this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// decorate attaches the bearer credential and a request id.
func (c *Client) decorate(req *http.Request) {
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// encodeMeetingForm assembles the multipart body for one meeting upload.
func encodeMeetingForm(input CreateMeetingInput) (*bytes.Buffer, string, error) {
	if len(input.Recording) == 0 {
		return nil, "", fmt.Errorf("recording payload is empty")
	}

	participants, err := json.Marshal(input.Participants)
	if err != nil {
		return nil, "", fmt.Errorf("encode participants: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldRecording, recordingFilename(input.Filename)))
	header.Set("Content-Type", recordingMime(input.MimeType))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create recording part: %w", err)
	}
	if _, err := part.Write(input.Recording); err != nil {
		return nil, "", fmt.Errorf("write recording part: %w", err)
	}

	fields := []struct {
		name  string
		value string
	}{
		{fieldTitle, input.Title},
		{fieldDate, input.Date.Format(time.RFC3339)},
		{fieldParticipants, string(participants)},
		{fieldDuration, strconv.Itoa(input.Duration)},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", field.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func recordingFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return "recording.wav"
	}
	return name
}

func recordingMime(mime string) string {
	if strings.TrimSpace(mime) == "" {
		return "audio/wav"
	}
	return mime
}

// decodeServerError turns a non-2xx response into a ServerError, carrying
// the server's message verbatim when the body provides one.
func decodeServerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		return &ServerError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}
