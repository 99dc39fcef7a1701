// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %v, want default %v", cfg.Audio.SampleRate, DefaultSampleRate)
	}
	if cfg.Params.PreGain != 1 || cfg.Params.PostGain != 1 {
		t.Errorf("gains = %v/%v, want 1/1", cfg.Params.PreGain, cfg.Params.PostGain)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoad_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 48000
  channels: 1
  channel_mode: independent
  frames_per_buffer: 256
params:
  pre_gain: 0.5
  post_gain: 0.75
control:
  enabled: true
  addr: ":9000"
render:
  tail: 1500ms
  bit_depth: 24
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 1 || cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.ChannelMode != "independent" {
		t.Errorf("channel mode = %q", cfg.Audio.ChannelMode)
	}
	if cfg.Params.PreGain != 0.5 || cfg.Params.PostGain != 0.75 {
		t.Errorf("params = %+v", cfg.Params)
	}
	if !cfg.Control.Enabled || cfg.Control.Addr != ":9000" {
		t.Errorf("control = %+v", cfg.Control)
	}
	if cfg.Render.Tail != 1500*time.Millisecond || cfg.Render.BitDepth != 24 {
		t.Errorf("render = %+v", cfg.Render)
	}
	// Untouched sections keep their defaults.
	if cfg.Recording.BitDepth != DefaultRecordingBitDepth {
		t.Errorf("recording bit depth = %d", cfg.Recording.BitDepth)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
audio:
  sample_rate: 4000
  channels: 0
  frames_per_buffer: 500
  channel_mode: stereo
params:
  pre_gain: 3
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	for _, field := range []string{"sample_rate", "channels", "frames_per_buffer", "channel_mode", "pre_gain"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %v", field, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"VERB_SAMPLE_RATE":     "96000",
		"VERB_CHANNELS":        "1",
		"VERB_CHANNEL_MODE":    "independent",
		"VERB_PRE_GAIN":        "0.25",
		"VERB_POST_GAIN":       "not-a-number",
		"VERB_CONTROL_ENABLED": "true",
		"VERB_CONTROL_ADDR":    "0.0.0.0:7000",
		"VERB_RENDER_TAIL":     "2s",
	}
	cfg := Default()
	cfg.applyEnvOverrides(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	if cfg.Audio.SampleRate != 96000 || cfg.Audio.Channels != 1 || cfg.Audio.ChannelMode != "independent" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Params.PreGain != 0.25 {
		t.Errorf("pre gain = %v, want 0.25", cfg.Params.PreGain)
	}
	if cfg.Params.PostGain != DefaultPostGain {
		t.Errorf("malformed post gain should be ignored, got %v", cfg.Params.PostGain)
	}
	if !cfg.Control.Enabled || cfg.Control.Addr != "0.0.0.0:7000" {
		t.Errorf("control = %+v", cfg.Control)
	}
	if cfg.Render.Tail != 2*time.Second {
		t.Errorf("render tail = %s", cfg.Render.Tail)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("overridden config should validate: %v", err)
	}
}

func TestLoad_EnvAfterFile(t *testing.T) {
	path := writeTempConfig(t, "audio:\n  sample_rate: 48000\n")
	t.Setenv("VERB_SAMPLE_RATE", "22050")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 22050 {
		t.Errorf("sample rate = %v, want env value 22050", cfg.Audio.SampleRate)
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}
