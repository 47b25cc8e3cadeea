// Package capture owns one recording session: device acquisition, ordered
// chunk accumulation, the elapsed timer, and sealing into a Recording.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/fsm"
)

// MimeTypeWAV tags sealed recordings for the upload form.
const MimeTypeWAV = "audio/wav"

// Recording is the sealed output of one capture session. Data is the exact
// concatenation of delivered chunks in arrival order; the WAV container is
// applied at encode time, not here.
type Recording struct {
	Data     []byte
	Format   audio.Format
	Device   audio.Device
	Duration int
	MimeType string
}

// OpenFunc acquires a started capture source.
type OpenFunc func(ctx context.Context, opts audio.Options) (audio.Source, error)

// session is the live state of one capture attempt. run owns data until
// done is closed; afterwards ownership passes to the sealing caller.
type session struct {
	source audio.Source
	done   chan struct{}
	data   []byte
}

// Controller drives the idle/recording/paused lifecycle for recording
// sessions. All methods are safe for concurrent use; mutual exclusion
// between operations is enforced by the state machine guards.
type Controller struct {
	open OpenFunc
	opts audio.Options
	tick time.Duration

	mu      sync.RWMutex
	state   fsm.State
	sess    *session
	elapsed int
}

// New constructs an idle controller. A nil open falls back to audio.Open.
func New(opts audio.Options, open OpenFunc) *Controller {
	if open == nil {
		open = audio.Open
	}
	return &Controller{
		open:  open,
		opts:  opts,
		state: fsm.StateIdle,
	}
}

// State returns the current lifecycle state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Elapsed returns whole seconds spent recording, excluding paused intervals.
func (c *Controller) Elapsed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// Device returns the capture device of the active session, or a zero Device
// while idle.
func (c *Controller) Device() audio.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return audio.Device{}
	}
	return c.sess.source.Device()
}

// BytesCaptured reports bytes accepted from the platform so far.
func (c *Controller) BytesCaptured() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return 0
	}
	return c.sess.source.BytesCaptured()
}

// Start acquires the audio source and transitions idle to recording with
// elapsed reset to zero. When acquisition fails the session stays idle and
// the error carries the capture taxonomy (audio.ErrPermissionDenied or
// audio.ErrDeviceUnavailable).
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		return err
	}

	source, err := c.open(ctx, c.opts)
	if err != nil {
		return err
	}

	sess := &session{source: source, done: make(chan struct{})}
	c.sess = sess
	c.state = next
	c.elapsed = 0

	go c.run(sess)
	return nil
}

// run consumes the session's two event sources: chunk delivery and the
// one-second tick. Chunks append in arrival order; the tick increments
// elapsed only while this session is current and recording. Exits when the
// source seals its channel.
func (c *Controller) run(s *session) {
	defer close(s.done)

	interval := c.tick
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case chunk, ok := <-s.source.Chunks():
			if !ok {
				return
			}
			if len(chunk) == 0 {
				continue
			}
			s.data = append(s.data, chunk...)
		case <-ticker.C:
			c.mu.Lock()
			if c.sess == s && c.state == fsm.StateRecording {
				c.elapsed++
			}
			c.mu.Unlock()
		}
	}
}

// Pause quiesces chunk delivery and the elapsed tick without releasing the
// device. No-op outside recording.
func (c *Controller) Pause() {
	if source := c.applyLogical(fsm.EventPause); source != nil {
		source.Pause()
	}
}

// Resume restarts chunk delivery and the elapsed tick. No-op outside paused.
func (c *Controller) Resume() {
	if source := c.applyLogical(fsm.EventResume); source != nil {
		source.Resume()
	}
}

// applyLogical commits a pause or resume transition and hands back the
// source for quiescing outside the lock, keeping stream roundtrips from
// blocking the tick.
func (c *Controller) applyLogical(event fsm.Event) audio.Source {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return nil
	}
	c.state = next
	if c.sess == nil {
		return nil
	}
	return c.sess.source
}

// Stop seals the session: halts delivery, releases the device, waits for
// residual chunks to drain, and returns the Recording. Called while idle it
// returns nil with no error and no state change.
func (c *Controller) Stop() (*Recording, error) {
	sess, elapsed, err := c.teardown(fsm.EventStop)
	if err != nil || sess == nil {
		return nil, err
	}

	_ = sess.source.Stop()
	<-sess.done

	return &Recording{
		Data:     sess.data,
		Format:   sess.source.Format(),
		Device:   sess.source.Device(),
		Duration: elapsed,
		MimeType: MimeTypeWAV,
	}, nil
}

// Cancel releases the device and discards all accumulated audio. No-op
// while idle.
func (c *Controller) Cancel() error {
	sess, _, err := c.teardown(fsm.EventCancel)
	if err != nil || sess == nil {
		return err
	}

	_ = sess.source.Stop()
	<-sess.done
	sess.data = nil
	return nil
}

// teardown applies a terminal event and detaches the current session. The
// caller stops the source and drains outside the lock so residual chunk
// delivery cannot deadlock against run.
func (c *Controller) teardown(event fsm.Event) (*session, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == fsm.StateIdle {
		return nil, 0, nil
	}
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return nil, 0, err
	}

	c.state = next
	sess := c.sess
	c.sess = nil
	return sess, c.elapsed, nil
}
