// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"verb/internal/audio"
	"verb/internal/config"
	applog "verb/internal/log"
	"verb/internal/params"
	"verb/internal/processor"
	"verb/internal/transport"
	"verb/internal/tui"
	"verb/pkg/build"
)

// newProcessor builds the parameter store and effect chain for cfg.
func newProcessor(cfg *config.Config) (*processor.Processor, error) {
	store := params.NewStore()
	store.SetSampleRate(float32(cfg.Audio.SampleRate))
	store.Set(params.PreGain, cfg.Params.PreGain)
	store.Set(params.PostGain, cfg.Params.PostGain)

	mode, err := processor.ParseChannelMode(cfg.Audio.ChannelMode)
	if err != nil {
		return nil, err
	}
	return processor.New(store, cfg.Audio.Channels, mode)
}

// newTransport starts the websocket control when enabled and falls back to
// logging parameter changes.
func newTransport(cfg *config.Config, store *params.Store) (transport.Transport, error) {
	if !cfg.Control.Enabled {
		return transport.NewLoggingTransport(), nil
	}
	srv := transport.NewServer(store, cfg.Control.Addr)
	if err := srv.Start(); err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

// runLive streams audio through the effect until the panel is closed or
// ctx is cancelled.
func runLive(ctx context.Context, cfg *config.Config, opts options) error {
	proc, err := newProcessor(cfg)
	if err != nil {
		return err
	}
	store := proc.Params()

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	engine, err := audio.NewEngine(cfg, proc)
	if err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
	}()

	out, err := newTransport(cfg, store)
	if err != nil {
		return err
	}
	defer out.Close()

	var recording string
	if cfg.Recording.Enabled {
		recording, err = engine.StartRecording(opts.output)
		if err != nil {
			return err
		}
	}

	if opts.headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		applog.Infof("Running headless; interrupt to stop")
		<-ctx.Done()
	} else if err := runPanel(ctx, store, out, engine); err != nil {
		return err
	}

	if recording != "" {
		if err := engine.StopRecording(); err != nil {
			return fmt.Errorf("error stopping recording: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Recording saved to: %s\n", recording)
	}
	return nil
}

// runPanel owns the terminal while it runs, so logging is muted.
func runPanel(ctx context.Context, store *params.Store, out transport.Transport, engine *audio.Engine) error {
	applog.SetOutput(io.Discard)
	defer applog.SetOutput(os.Stderr)

	info := build.Get()
	model := tui.NewParamModel(info.Name+" "+info.Version, store, out, engine)
	err := tui.RunParams(ctx, model)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
