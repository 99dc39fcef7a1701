// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "verb/internal/log"
	"verb/internal/processor"
	"verb/pkg/bitint"
)

// DefaultPath is searched when Load is called without a path.
const DefaultPath = "config.yaml"

var ErrInvalidConfig = errors.New("invalid configuration")

// Load builds the configuration from defaults, the YAML file at path and
// VERB_* environment variables, in that order, and validates the result.
// An empty path loads DefaultPath if it exists and otherwise uses the
// defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		applog.Debugf("config: loaded %s", path)
	}

	cfg.applyEnvOverrides(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every bound and returns all violations at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, v ...any) {
		errs = append(errs, fmt.Errorf(format, v...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		fail("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	a := c.Audio
	if math.IsNaN(a.SampleRate) || a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		fail("audio.sample_rate %v outside %d-%d Hz", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.Channels < 1 || a.Channels > MaxChannels {
		fail("audio.channels %d outside 1-%d", a.Channels, MaxChannels)
	}
	if !bitint.IsPowerOfTwo(a.FramesPerBuffer) || a.FramesPerBuffer > MaxBufferFrames {
		fail("audio.frames_per_buffer %d must be a power of two <= %d", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.InputDevice < MinDeviceID || a.OutputDevice < MinDeviceID {
		fail("audio devices must be >= %d", MinDeviceID)
	}
	if _, err := processor.ParseChannelMode(a.ChannelMode); err != nil {
		fail("audio.channel_mode: %v", err)
	}

	if g := c.Params.PreGain; !(g >= 0 && g <= MaxGain) {
		fail("params.pre_gain %v outside 0-%v", g, MaxGain)
	}
	if g := c.Params.PostGain; !(g >= 0 && g <= MaxGain) {
		fail("params.post_gain %v outside 0-%v", g, MaxGain)
	}

	if !validBitDepth(c.Recording.BitDepth) {
		fail("recording.bit_depth %d must be 16, 24 or 32", c.Recording.BitDepth)
	}
	if c.Recording.Enabled && c.Recording.OutputDir == "" {
		fail("recording.output_dir must be set when recording is enabled")
	}

	if c.Control.Enabled && !strings.Contains(c.Control.Addr, ":") {
		fail("control.addr %q must be host:port", c.Control.Addr)
	}

	if c.Render.Tail < 0 {
		fail("render.tail %s must not be negative", c.Render.Tail)
	}
	if c.Render.BitDepth != 0 && !validBitDepth(c.Render.BitDepth) {
		fail("render.bit_depth %d must be 0, 16, 24 or 32", c.Render.BitDepth)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func validBitDepth(depth int) bool {
	return depth == 16 || depth == 24 || depth == 32
}

// applyEnvOverrides applies VERB_* variables. Malformed values are logged
// and ignored.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if val, ok := lookup(key); ok {
			*dst = val
			applog.Debugf("config: %s=%s from environment", key, val)
		}
	}
	parse := func(key string, apply func(string) error) {
		val, ok := lookup(key)
		if !ok {
			return
		}
		if err := apply(val); err != nil {
			applog.Warnf("config: ignoring %s=%q: %v", key, val, err)
			return
		}
		applog.Debugf("config: %s=%s from environment", key, val)
	}

	str("VERB_LOG_LEVEL", &c.LogLevel)
	str("VERB_CHANNEL_MODE", &c.Audio.ChannelMode)
	str("VERB_CONTROL_ADDR", &c.Control.Addr)
	str("VERB_RECORDING_DIR", &c.Recording.OutputDir)

	parse("VERB_SAMPLE_RATE", func(v string) (err error) {
		c.Audio.SampleRate, err = parseAs(v, c.Audio.SampleRate, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
		return err
	})
	parse("VERB_CHANNELS", func(v string) (err error) {
		c.Audio.Channels, err = parseAs(v, c.Audio.Channels, strconv.Atoi)
		return err
	})
	parse("VERB_PRE_GAIN", func(v string) (err error) {
		c.Params.PreGain, err = parseAs(v, c.Params.PreGain, parseFloat32)
		return err
	})
	parse("VERB_POST_GAIN", func(v string) (err error) {
		c.Params.PostGain, err = parseAs(v, c.Params.PostGain, parseFloat32)
		return err
	})
	parse("VERB_CONTROL_ENABLED", func(v string) (err error) {
		c.Control.Enabled, err = parseAs(v, c.Control.Enabled, strconv.ParseBool)
		return err
	})
	parse("VERB_RECORDING_ENABLED", func(v string) (err error) {
		c.Recording.Enabled, err = parseAs(v, c.Recording.Enabled, strconv.ParseBool)
		return err
	})
	parse("VERB_RENDER_TAIL", func(v string) (err error) {
		c.Render.Tail, err = parseAs(v, c.Render.Tail, time.ParseDuration)
		return err
	})
}

// parseAs returns the parsed value, or keep when parsing fails.
func parseAs[T any](s string, keep T, parse func(string) (T, error)) (T, error) {
	v, err := parse(s)
	if err != nil {
		return keep, err
	}
	return v, nil
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}
