package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// pulseSource streams PCM chunks from one PulseAudio input source.
type pulseSource struct {
	*pcmSink

	device Device
	format Format

	client *pulse.Client
	stream *pulse.RecordStream

	pauseMu sync.Mutex
	paused  bool
}

// startPulse connects to the Pulse server, resolves the configured device,
// and starts a record stream.
func startPulse(ctx context.Context, opts Options) (Source, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(captureAppName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, classifyOpenErr("connect pulse server", err)
	}

	devices, err := listPulseDevices(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	selection, err := selectDeviceFromList(devices, opts.Device)
	if err != nil {
		client.Close()
		return nil, err
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, classifyOpenErr(fmt.Sprintf("resolve source %q", selection.Device.ID), err)
	}

	format := Format{SampleRate: opts.SampleRate, Channels: opts.Channels}
	s := &pulseSource{
		pcmSink: newPCMSink(chunkBytes(format)),
		device:  selection.Device,
		format:  format,
		client:  client,
	}

	streamOpts := []pulse.RecordOption{
		pulse.RecordSource(source),
		pulse.RecordSampleRate(opts.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(s.chunkSize)),
		pulse.RecordMediaName("meetscribe recording"),
	}
	if opts.Channels == 2 {
		streamOpts = append(streamOpts, pulse.RecordStereo)
	} else {
		streamOpts = append(streamOpts, pulse.RecordMono)
	}

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE),
		streamOpts...,
	)
	if err != nil {
		client.Close()
		return nil, classifyOpenErr("create pulse record stream", err)
	}

	s.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return s, nil
}

// Device returns capture metadata for logging and diagnostics.
func (s *pulseSource) Device() Device {
	return s.device
}

// Format returns the stream's PCM sample layout.
func (s *pulseSource) Format() Format {
	return s.format
}

// Pause quiesces the record stream without releasing the device.
func (s *pulseSource) Pause() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if s.paused || s.isStopped() {
		return
	}
	s.stream.Stop()
	s.paused = true
}

// Resume restarts a paused record stream.
func (s *pulseSource) Resume() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if !s.paused || s.isStopped() {
		return
	}
	s.stream.Start()
	s.paused = false
}

// Stop halts the stream, releases the device, flushes residual PCM, and
// closes Chunks exactly once.
func (s *pulseSource) Stop() error {
	if !s.beginStop() {
		return nil
	}

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	if s.client != nil {
		s.client.Close()
	}

	s.seal()
	return nil
}

// listPulseDevices enumerates Pulse input sources over an open client.
func listPulseDevices(client *pulse.Client) ([]Device, error) {
	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, classifyOpenErr("read default source", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, classifyOpenErr("list sources", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
