package audio

import (
	"io"
	"sync"
	"sync/atomic"
)

// pcmSink buffers raw PCM from a backend callback and re-slices it into
// uniform chunks for delivery. Both capture backends embed one.
type pcmSink struct {
	chunkSize int
	chunks    chan []byte
	stopCh    chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

func newPCMSink(chunkSize int) *pcmSink {
	if chunkSize <= 0 {
		chunkSize = 640
	}
	return &pcmSink{
		chunkSize: chunkSize,
		chunks:    make(chan []byte, 128),
		stopCh:    make(chan struct{}),
	}
}

// Chunks returns the PCM stream as byte slices in arrival order.
func (s *pcmSink) Chunks() <-chan []byte {
	return s.chunks
}

// BytesCaptured reports total bytes accepted from the backend.
func (s *pcmSink) BytesCaptured() int64 {
	return s.bytes.Load()
}

func (s *pcmSink) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// beginStop marks the sink stopped exactly once. The winning caller tears
// down its stream and then calls seal.
func (s *pcmSink) beginStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	close(s.stopCh)
	return true
}

// seal waits out in-flight writes, flushes residual PCM as a final chunk,
// and closes Chunks. No chunk can arrive after seal returns.
func (s *pcmSink) seal() {
	s.inflight.Wait()

	s.mu.Lock()
	pending := append([]byte(nil), s.pending...)
	s.pending = nil
	s.mu.Unlock()

	// The consumer drains until the channel closes, so this send cannot block
	// indefinitely and the residual bytes are never dropped.
	if len(pending) > 0 {
		s.chunks <- pending
	}

	close(s.chunks)
}

// onPCM receives a raw backend buffer and emits chunkSize slices to Chunks.
func (s *pcmSink) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-s.stopCh:
		return 0, io.EOF
	default:
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as s.stopped to avoid Add/Wait races.
	s.inflight.Add(1)

	s.pending = append(s.pending, buffer...)
	chunks := make([][]byte, 0, len(s.pending)/s.chunkSize)
	for len(s.pending) >= s.chunkSize {
		chunk := make([]byte, s.chunkSize)
		copy(chunk, s.pending[:s.chunkSize])
		s.pending = s.pending[s.chunkSize:]
		chunks = append(chunks, chunk)
	}
	s.mu.Unlock()
	defer s.inflight.Done()

	s.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		case s.chunks <- chunk:
		}
	}

	return len(buffer), nil
}
