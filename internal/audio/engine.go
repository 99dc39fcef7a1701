// SPDX-License-Identifier: MIT
/*
Package audio runs the effect live on a PortAudio duplex stream.

Thread Safety:
- The stream callback is the only caller of the processor
- Gains reach the callback through the lock-free params.Store
- The recorder is swapped in and out through an atomic pointer; the
  callback only ever pushes into its lock-free ring
- All buffers are allocated before the stream starts
*/
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"verb/internal/config"
	applog "verb/internal/log"
	"verb/internal/processor"
	"verb/pkg/signal"
)

// Engine owns the duplex stream and feeds it through the processor.
type Engine struct {
	config *config.Config
	proc   *processor.Processor

	inputDevice  *portaudio.DeviceInfo
	outputDevice *portaudio.DeviceInfo
	stream       *portaudio.Stream

	interleaved []float32 // frames × channels, reused every callback
	recorder    atomic.Pointer[Recorder]

	callbacks atomic.Uint64
	peak      atomic.Uint32 // Last callback's output peak, float32 bits.
}

// NewEngine resolves devices and preallocates buffers. PortAudio must be
// initialized.
func NewEngine(cfg *config.Config, proc *processor.Processor) (*Engine, error) {
	in, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, fmt.Errorf("input device: %w", err)
	}
	out, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, fmt.Errorf("output device: %w", err)
	}

	e := newEngine(cfg, proc)
	e.inputDevice = in
	e.outputDevice = out
	return e, nil
}

func newEngine(cfg *config.Config, proc *processor.Processor) *Engine {
	return &Engine{
		config:      cfg,
		proc:        proc,
		interleaved: make([]float32, cfg.Audio.FramesPerBuffer*cfg.Audio.Channels),
	}
}

// Start opens and starts the duplex stream.
func (e *Engine) Start() error {
	inLatency, outLatency := e.inputDevice.DefaultHighInputLatency, e.outputDevice.DefaultHighOutputLatency
	if e.config.Audio.LowLatency {
		inLatency, outLatency = e.inputDevice.DefaultLowInputLatency, e.outputDevice.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   e.inputDevice,
			Channels: e.config.Audio.Channels,
			Latency:  inLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   e.outputDevice,
			Channels: e.config.Audio.Channels,
			Latency:  outLatency,
		},
		SampleRate:      e.config.Audio.SampleRate,
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	e.stream = stream

	applog.Infof("Engine: streaming %s -> %s at %.0f Hz, %d ch, %d frames (%s channels)",
		e.inputDevice.Name, e.outputDevice.Name, e.config.Audio.SampleRate,
		e.config.Audio.Channels, e.config.Audio.FramesPerBuffer, e.proc.Mode())
	return nil
}

// Stop stops and closes the stream if it is running.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	applog.Infof("Engine: stream stopped after %d callbacks", e.callbacks.Load())
	return nil
}

// processStream is the PortAudio callback.
// Hot path: no allocations, no locks, no I/O.
func (e *Engine) processStream(in, out [][]float32) {
	e.proc.Process(in, out)

	if len(out) > 0 {
		frames := len(out[0])
		n := frames * len(out)
		if n <= len(e.interleaved) {
			signal.Interleave(e.interleaved[:n], out, frames)
			peak, _ := signal.Peak(e.interleaved[:n])
			e.storePeak(peak)
			if rec := e.recorder.Load(); rec != nil {
				rec.Push(e.interleaved[:n])
			}
		}
	}

	e.callbacks.Add(1)
}

func (e *Engine) storePeak(v float32) {
	e.peak.Store(math.Float32bits(v))
}

// Peak returns the output peak of the most recent callback.
func (e *Engine) Peak() float32 {
	return math.Float32frombits(e.peak.Load())
}

// Callbacks returns the number of buffers processed.
func (e *Engine) Callbacks() uint64 {
	return e.callbacks.Load()
}

// StartRecording begins capturing the wet output. An empty filename
// generates one in the configured recording directory.
func (e *Engine) StartRecording(filename string) (string, error) {
	if e.recorder.Load() != nil {
		return "", ErrAlreadyRecording
	}
	if filename == "" {
		dir := e.config.Recording.OutputDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create recording directory: %w", err)
		}
		filename = filepath.Join(dir, "verb-"+time.Now().UTC().Format("02-01-2006-150405")+".wav")
	}

	rec, err := NewRecorder(filename, int(e.config.Audio.SampleRate),
		e.config.Audio.Channels, e.config.Recording.BitDepth)
	if err != nil {
		return "", err
	}
	if !e.recorder.CompareAndSwap(nil, rec) {
		rec.Close()
		return "", ErrAlreadyRecording
	}
	return filename, nil
}

// StopRecording detaches the recorder and finalises its file.
func (e *Engine) StopRecording() error {
	rec := e.recorder.Swap(nil)
	if rec == nil {
		return nil
	}
	return rec.Close()
}

// Recording reports whether a recorder is attached.
func (e *Engine) Recording() bool {
	return e.recorder.Load() != nil
}

// Close stops recording and the stream.
func (e *Engine) Close() error {
	return errors.Join(e.StopRecording(), e.Stop())
}
