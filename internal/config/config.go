// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"verb/internal/processor"
)

// Defaults and limits for the effect host.
const (
	DefaultLogLevel        = "info"
	DefaultDeviceID        = MinDeviceID // System default device.
	DefaultSampleRate      = 44100       // CD-quality audio.
	DefaultFramesPerBuffer = 512         // Balanced latency/performance.
	DefaultChannels        = 2
	DefaultLowLatency      = false
	DefaultChannelMode     = string(processor.Shared)

	DefaultPreGain  float32 = 1.0
	DefaultPostGain float32 = 1.0

	DefaultRecordingDir      = "./recordings"
	DefaultRecordingBitDepth = 16

	DefaultControlAddr = "127.0.0.1:8080"

	DefaultRenderTail = 3 * time.Second

	MinDeviceID     = -1     // -1 represents the system default device.
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxChannels     = 8
	MaxBufferFrames = 8192 // Must be a power of two.
	MaxGain         = 2.0
)

// Config is the complete runtime configuration. It is built from defaults,
// an optional YAML file, environment overrides and finally CLI flags.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Params    ParamsConfig    `yaml:"params"`
	Recording RecordingConfig `yaml:"recording"`
	Control   ControlConfig   `yaml:"control"`
	Render    RenderConfig    `yaml:"render"`
}

// AudioConfig selects devices and stream format for live processing.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Fixed for the life of the reverb.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Callback size; affects latency only.
	Channels        int     `yaml:"channels"`          // Same count in and out.
	LowLatency      bool    `yaml:"low_latency"`       // Use the devices' low latency defaults.
	ChannelMode     string  `yaml:"channel_mode"`      // "shared" or "independent".
}

// ParamsConfig holds the initial linear gains.
type ParamsConfig struct {
	PreGain  float32 `yaml:"pre_gain"`
	PostGain float32 `yaml:"post_gain"`
}

// RecordingConfig controls capture of the wet output during live runs.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth"`
}

// ControlConfig enables the websocket parameter server.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RenderConfig tunes offline file rendering.
type RenderConfig struct {
	Tail     time.Duration `yaml:"tail"`      // Silence appended so the reverb rings out.
	BitDepth int           `yaml:"bit_depth"` // 0 keeps the source bit depth.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Channels:        DefaultChannels,
			LowLatency:      DefaultLowLatency,
			ChannelMode:     DefaultChannelMode,
		},
		Params: ParamsConfig{
			PreGain:  DefaultPreGain,
			PostGain: DefaultPostGain,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultRecordingBitDepth,
		},
		Control: ControlConfig{
			Enabled: false,
			Addr:    DefaultControlAddr,
		},
		Render: RenderConfig{
			Tail:     DefaultRenderTail,
			BitDepth: 0,
		},
	}
}
