package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
)

// Device describes one capture source surfaced to the CLI.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning
// context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns the configured backend's input sources with
// default/availability metadata.
func ListDevices(_ context.Context, backend string) ([]Device, error) {
	switch normalizeBackend(backend) {
	case "pulse":
		client, err := pulse.NewClient(
			pulse.ClientApplicationName(captureAppName),
			pulse.ClientApplicationIconName("audio-input-microphone"),
		)
		if err != nil {
			return nil, classifyOpenErr("connect pulse server", err)
		}
		defer client.Close()
		return listPulseDevices(client)
	case "portaudio":
		return listPortAudioDevices()
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// SelectDevice resolves a configured device term against the backend's
// live sources, applying the muted/unavailable fallback rules.
func SelectDevice(ctx context.Context, backend, want string) (Selection, error) {
	devices, err := ListDevices(ctx, backend)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, want)
}

// selectDeviceFromList resolves a configured device term against live
// devices. The default source backstops a matched device that is muted or
// unavailable.
func selectDeviceFromList(devices []Device, want string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("no audio input devices found: %w", ErrDeviceUnavailable)
	}

	want = strings.TrimSpace(strings.ToLower(want))

	var (
		defaultDevice *Device
		matched       *Device
	)
	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if matched == nil && want != "" && want != "default" && deviceMatches(*dev, want) {
			matched = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, fmt.Errorf("default audio source is unavailable: %w", ErrDeviceUnavailable)
		}
		return defaultDevice, nil
	}

	primary := matched
	if want == "" || want == "default" {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, err
		}
		primary = d
	} else if primary == nil {
		return Selection{}, fmt.Errorf("audio.device %q did not match any device: %w", want, ErrDeviceUnavailable)
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	fallback, err := chooseDefault()
	if err != nil {
		return Selection{}, fmt.Errorf("device %q is %s and no usable fallback: %w", primary.ID, primaryReason, err)
	}
	if fallback.ID == primary.ID || !fallback.Available || fallback.Muted {
		return Selection{}, fmt.Errorf("device %q is %s: %w", primary.ID, primaryReason, ErrDeviceUnavailable)
	}

	return Selection{
		Device:   *fallback,
		Warning:  fmt.Sprintf("audio.device %q is %s; falling back to %q", primary.ID, primaryReason, fallback.ID),
		Fallback: true,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or
// description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}
