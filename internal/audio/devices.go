// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"

	"verb/internal/config"
)

// Device is a host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatencyMs      float64
	HighLatencyMs     float64
}

// Kind describes the directions a device supports.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "None"
	}
}

// paDevicesFunc is swapped in tests.
var paDevicesFunc = portaudio.Devices

// Initialize sets up PortAudio. Pair every call with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts PortAudio down.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns every device PortAudio knows about. PortAudio must be
// initialized.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowLatencyMs:      info.DefaultLowOutputLatency.Seconds() * 1000,
			HighLatencyMs:     info.DefaultHighOutputLatency.Seconds() * 1000,
		}
	}
	return devices, nil
}

func lookupDevice(id int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if id == config.MinDeviceID {
		return fallback()
	}
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= len(infos) {
		return nil, fmt.Errorf("invalid device ID: %d", id)
	}
	return infos[id], nil
}

// InputDevice returns the device with the given ID, or the default input
// device for config.MinDeviceID.
func InputDevice(id int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(id, portaudio.DefaultInputDevice)
}

// OutputDevice returns the device with the given ID, or the default output
// device for config.MinDeviceID.
func OutputDevice(id int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(id, portaudio.DefaultOutputDevice)
}

// WriteDeviceList prints a human readable device table.
func WriteDeviceList(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Output latency: Low=%.2fms, High=%.2fms\n\n", d.LowLatencyMs, d.HighLatencyMs)
	}
}
