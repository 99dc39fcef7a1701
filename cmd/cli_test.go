// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"verb/internal/config"
	"verb/internal/params"
	"verb/internal/processor"
	"verb/internal/wavio"
)

// runApp executes args with the live runner replaced by a recorder.
func runApp(t *testing.T, args ...string) (*App, string, error) {
	t.Helper()
	// Keep a config.yaml in the working directory from leaking in.
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	app := &App{stdout: &out}
	app.live = func(ctx context.Context, cfg *config.Config, opts options) error {
		app.cfg = cfg
		return nil
	}
	root := app.rootCommand()
	root.SetArgs(args)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return app, out.String(), err
}

func TestRootAppliesFlags(t *testing.T) {
	app, _, err := runApp(t,
		"--sample-rate", "48000",
		"--channels", "1",
		"--channel-mode", "independent",
		"--pre-gain", "0.5",
		"--post-gain", "1.5",
		"--frames-per-buffer", "256",
		"--record",
		"--control",
		"--control-addr", "127.0.0.1:9999",
	)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	cfg := app.cfg
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 1 || cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.ChannelMode != string(processor.Independent) {
		t.Errorf("channel mode = %q", cfg.Audio.ChannelMode)
	}
	if cfg.Params.PreGain != 0.5 || cfg.Params.PostGain != 1.5 {
		t.Errorf("params = %+v", cfg.Params)
	}
	if !cfg.Recording.Enabled || !cfg.Control.Enabled || cfg.Control.Addr != "127.0.0.1:9999" {
		t.Errorf("recording/control = %+v / %+v", cfg.Recording, cfg.Control)
	}
}

func TestRootKeepsConfigFileWhenFlagsUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verb.yaml")
	yaml := "audio:\n  sample_rate: 96000\n  channel_mode: independent\nparams:\n  post_gain: 0.25\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	app, _, err := runApp(t, "--config", path, "--channels", "1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if app.cfg.Audio.SampleRate != 96000 || app.cfg.Audio.ChannelMode != "independent" {
		t.Errorf("file values lost: %+v", app.cfg.Audio)
	}
	if app.cfg.Params.PostGain != 0.25 || app.cfg.Audio.Channels != 1 {
		t.Errorf("merge = %+v / %+v", app.cfg.Params, app.cfg.Audio)
	}
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"sample rate", []string{"--sample-rate", "100"}},
		{"channels", []string{"--channels", "0"}},
		{"channel mode", []string{"--channel-mode", "mid-side"}},
		{"gain", []string{"--post-gain", "3"}},
		{"frames", []string{"--frames-per-buffer", "300"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runApp(t, tt.args...)
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestInspectCommand(t *testing.T) {
	_, out, err := runApp(t, "inspect", "--sample-rate", "8000", "--seconds", "1")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Sammons VST2.4", "Sample rate: 8000 Hz", "Delay lines (10):", "First echo:"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")
	clip := &wavio.Clip{SampleRate: 8000, Channels: 1, BitDepth: 16, Samples: make([]float32, 800)}
	clip.Samples[0] = 0.5
	if err := wavio.WriteFile(in, clip); err != nil {
		t.Fatal(err)
	}

	_, out, err := runApp(t, "render", in, outPath, "--tail", "500ms", "--bit-depth", "24", "--post-gain", "0.5")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "800 frames in, 4800 frames out") {
		t.Errorf("render output = %q", out)
	}

	got, err := wavio.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.BitDepth != 24 || got.Frames() != 4800 {
		t.Errorf("output is %d bit, %d frames", got.BitDepth, got.Frames())
	}
	if d := got.Samples[0] - 0.25; d > 1e-4 || d < -1e-4 {
		t.Errorf("first sample = %v, want 0.25", got.Samples[0])
	}
}

func TestRenderCommandNeedsTwoArgs(t *testing.T) {
	if _, _, err := runApp(t, "render", "only-one.wav"); err == nil {
		t.Error("expected an argument error")
	}
}

func TestNewProcessor(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.SampleRate = 8000
	cfg.Audio.Channels = 2
	cfg.Audio.ChannelMode = string(processor.Independent)
	cfg.Params.PreGain = 0.3

	proc, err := newProcessor(cfg)
	if err != nil {
		t.Fatalf("newProcessor: %v", err)
	}
	if proc.Mode() != processor.Independent || proc.Channels() != 2 {
		t.Errorf("mode/channels = %s/%d", proc.Mode(), proc.Channels())
	}
	if proc.Engine(0).SampleRate() != 8000 {
		t.Errorf("engine rate = %d", proc.Engine(0).SampleRate())
	}
	if got := proc.Params().Get(params.PreGain); got != 0.3 {
		t.Errorf("pre gain = %v", got)
	}
}

func TestNewTransportFallsBackToLogging(t *testing.T) {
	cfg := config.Default()
	out, err := newTransport(cfg, params.NewStore())
	if err != nil {
		t.Fatalf("newTransport: %v", err)
	}
	defer out.Close()
	if err := out.Send(params.NewStore().Snapshot()); err != nil {
		t.Errorf("Send: %v", err)
	}
}
