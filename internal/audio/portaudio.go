package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// portaudioSource streams PCM chunks through the portable PortAudio backend.
type portaudioSource struct {
	*pcmSink

	device Device
	format Format

	stream *portaudio.Stream

	pauseMu sync.Mutex
	paused  bool
}

// startPortAudio initializes PortAudio, resolves the configured device, and
// starts an input stream.
func startPortAudio(ctx context.Context, opts Options) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, classifyOpenErr("initialize portaudio", err)
	}

	devices, infoByID, err := portAudioInputs()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	selection, err := selectDeviceFromList(devices, opts.Device)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	info := infoByID[selection.Device.ID]
	if info == nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("resolve device %q: %w", selection.Device.ID, ErrDeviceUnavailable)
	}

	channels := opts.Channels
	if info.MaxInputChannels > 0 && info.MaxInputChannels < channels {
		channels = info.MaxInputChannels
	}
	format := Format{SampleRate: opts.SampleRate, Channels: channels}

	s := &portaudioSource{
		pcmSink: newPCMSink(chunkBytes(format)),
		device:  selection.Device,
		format:  format,
	}

	params := portaudio.HighLatencyParameters(info, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(opts.SampleRate)
	params.FramesPerBuffer = opts.SampleRate / 50

	stream, err := portaudio.OpenStream(params, s.onSamples)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, classifyOpenErr("open portaudio stream", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, classifyOpenErr("start portaudio stream", err)
	}
	s.stream = stream

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return s, nil
}

// Device returns capture metadata for logging and diagnostics.
func (s *portaudioSource) Device() Device {
	return s.device
}

// Format returns the stream's PCM sample layout.
func (s *portaudioSource) Format() Format {
	return s.format
}

// Pause quiesces the input stream without tearing down PortAudio.
func (s *portaudioSource) Pause() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if s.paused || s.isStopped() {
		return
	}
	_ = s.stream.Stop()
	s.paused = true
}

// Resume restarts a paused input stream.
func (s *portaudioSource) Resume() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if !s.paused || s.isStopped() {
		return
	}
	_ = s.stream.Start()
	s.paused = false
}

// Stop halts the stream, terminates PortAudio, flushes residual PCM, and
// closes Chunks exactly once.
func (s *portaudioSource) Stop() error {
	if !s.beginStop() {
		return nil
	}

	if s.stream != nil {
		_ = s.stream.Stop()
		_ = s.stream.Close()
	}
	_ = portaudio.Terminate()

	s.seal()
	return nil
}

// onSamples converts the callback's int16 frames to little-endian bytes and
// feeds the sink.
func (s *portaudioSource) onSamples(in []int16) {
	if len(in) == 0 {
		return
	}
	buf := make([]byte, len(in)*2)
	for i, sample := range in {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	_, _ = s.onPCM(buf)
}

// listPortAudioDevices enumerates input-capable PortAudio devices inside a
// short-lived init/terminate window.
func listPortAudioDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, classifyOpenErr("initialize portaudio", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, _, err := portAudioInputs()
	return devices, err
}

// portAudioInputs builds the Device view of input-capable devices plus a
// lookup back to the native handles.
func portAudioInputs() ([]Device, map[string]*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, nil, classifyOpenErr("list portaudio devices", err)
	}
	defaultInput, _ := portaudio.DefaultInputDevice()

	devices := make([]Device, 0, len(infos))
	infoByID := make(map[string]*portaudio.DeviceInfo, len(infos))
	for _, info := range infos {
		if info == nil || info.MaxInputChannels <= 0 {
			continue
		}
		description := info.Name
		if info.HostApi != nil {
			description = fmt.Sprintf("%s (%s)", info.Name, info.HostApi.Name)
		}
		devices = append(devices, Device{
			ID:          info.Name,
			Description: description,
			State:       "ready",
			Available:   true,
			Default:     defaultInput != nil && info.Name == defaultInput.Name,
		})
		infoByID[info.Name] = info
	}
	return devices, infoByID, nil
}
