// Package audio handles device discovery and chunked PCM capture sources.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const captureAppName = "meetscribe"

var (
	// ErrPermissionDenied reports that the platform refused capture access.
	ErrPermissionDenied = errors.New("audio capture permission denied")
	// ErrDeviceUnavailable reports that no usable capture device exists.
	ErrDeviceUnavailable = errors.New("audio capture device unavailable")
)

// Format describes the PCM sample layout a source delivers. Samples are
// 16-bit little-endian throughout.
type Format struct {
	SampleRate int
	Channels   int
}

// Options selects the backend, device, and sample format for a capture source.
type Options struct {
	Backend    string
	Device     string
	SampleRate int
	Channels   int
}

// Source is one live platform capture stream. Chunks delivers binary audio
// in arrival order with arbitrary, non-uniform sizing at the platform's
// discretion; the channel closes only after Stop has flushed residual data.
// Pause and Resume quiesce delivery without releasing the device.
type Source interface {
	Chunks() <-chan []byte
	Pause()
	Resume()
	Stop() error
	Device() Device
	Format() Format
	BytesCaptured() int64
}

// Open acquires a capture source for the configured backend. The returned
// source is already started; cancelling ctx stops it.
func Open(ctx context.Context, opts Options) (Source, error) {
	switch normalizeBackend(opts.Backend) {
	case "pulse":
		return startPulse(ctx, opts)
	case "portaudio":
		return startPortAudio(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", opts.Backend)
	}
}

func normalizeBackend(backend string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		return "pulse"
	}
	return backend
}

// classifyOpenErr folds backend-specific open failures into the capture
// error taxonomy so callers can distinguish refusal from absence.
func classifyOpenErr(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "not authorized") {
		return fmt.Errorf("%s: %w: %v", op, ErrPermissionDenied, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrDeviceUnavailable, err)
}

// chunkBytes sizes delivery chunks to roughly 20ms of audio.
func chunkBytes(f Format) int {
	n := f.SampleRate / 50 * 2 * f.Channels
	if n <= 0 {
		return 640
	}
	return n
}
