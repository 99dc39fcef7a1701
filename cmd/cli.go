// SPDX-License-Identifier: MIT
// Package cmd wires the command line to the effect.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"verb/internal/analysis"
	"verb/internal/audio"
	"verb/internal/config"
	applog "verb/internal/log"
	"verb/internal/plugin"
	"verb/internal/processor"
	"verb/internal/render"
	"verb/internal/tui"
	"verb/pkg/build"
)

// options are the raw flag values; only flags the user set override the
// loaded configuration.
type options struct {
	configPath string
	verbose    bool
	headless   bool
	output     string

	inputDevice     int
	outputDevice    int
	sampleRate      float64
	channels        int
	framesPerBuffer int
	lowLatency      bool
	channelMode     string
	preGain         float32
	postGain        float32
	record          bool
	control         bool
	controlAddr     string
}

// App carries the resolved configuration between cobra hooks.
type App struct {
	opts   options
	cfg    *config.Config
	stdout io.Writer

	// live runs the effect; swapped in tests.
	live func(ctx context.Context, cfg *config.Config, opts options) error
}

// NewRootCommand builds the command tree writing reports to stdout.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	app := &App{stdout: stdout, live: runLive}
	return app.rootCommand()
}

// Execute runs the command line until ctx is cancelled or the command ends.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand(os.Stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	buildInfo := build.Get()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Long:          buildInfo.Description + "\n\n" + plugin.Describe().String(),
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: a.loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.live(cmd.Context(), a.cfg, a.opts)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetOut(a.stdout)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "",
		"Path to a YAML config file (default: ./"+config.DefaultPath+" if present)")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false,
		"Show verbose output")

	// Audio Device Configuration
	pf.IntVarP(&a.opts.inputDevice, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	pf.IntVar(&a.opts.outputDevice, "output-device", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&a.opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&a.opts.channels, "channels", "c", config.DefaultChannels,
		"Number of channels (1=mono, 2=stereo)")
	pf.IntVarP(&a.opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&a.opts.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	pf.StringVar(&a.opts.channelMode, "channel-mode", config.DefaultChannelMode,
		"How channels share the reverb: shared or independent")

	// Effect Parameters
	pf.Float32Var(&a.opts.preGain, "pre-gain", config.DefaultPreGain,
		"Linear gain before the reverb")
	pf.Float32Var(&a.opts.postGain, "post-gain", config.DefaultPostGain,
		"Linear gain after the reverb")

	// Live-only
	f := rootCmd.Flags()
	f.BoolVarP(&a.opts.record, "record", "r", false,
		"Record the wet output")
	f.StringVarP(&a.opts.output, "output", "o", "",
		"Recording file name. Default is verb-DD-MM-YYYY-HHMMSS.wav in the recording directory")
	f.BoolVar(&a.opts.control, "control", false,
		"Serve the websocket parameter control")
	f.StringVar(&a.opts.controlAddr, "control-addr", config.DefaultControlAddr,
		"Address for the websocket parameter control")
	f.BoolVar(&a.opts.headless, "headless", false,
		"Run without the parameter panel until interrupted")

	rootCmd.AddCommand(a.listCommand(), a.renderCommand(), a.inspectCommand())
	return rootCmd
}

// loadConfig resolves defaults, file, environment and flags, in that order.
func (a *App) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}
	set("device", func() { cfg.Audio.InputDevice = a.opts.inputDevice })
	set("output-device", func() { cfg.Audio.OutputDevice = a.opts.outputDevice })
	set("sample-rate", func() { cfg.Audio.SampleRate = a.opts.sampleRate })
	set("channels", func() { cfg.Audio.Channels = a.opts.channels })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = a.opts.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = a.opts.lowLatency })
	set("channel-mode", func() { cfg.Audio.ChannelMode = a.opts.channelMode })
	set("pre-gain", func() { cfg.Params.PreGain = a.opts.preGain })
	set("post-gain", func() { cfg.Params.PostGain = a.opts.postGain })
	set("record", func() { cfg.Recording.Enabled = a.opts.record })
	set("control", func() { cfg.Control.Enabled = a.opts.control })
	set("control-addr", func() { cfg.Control.Addr = a.opts.controlAddr })

	if err := cfg.Validate(); err != nil {
		return err
	}

	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if a.opts.verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	a.cfg = cfg
	return nil
}

func (a *App) listCommand() *cobra.Command {
	var interactive bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			devices, err := audio.HostDevices()
			if err != nil {
				return err
			}
			if !interactive {
				audio.WriteDeviceList(a.stdout, devices)
				return nil
			}

			choice, err := tui.RunDeviceList(devices)
			if err != nil || choice == nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s -d %d --output-device %d -s %.0f\n",
				build.Get().Name, choice.Device.ID, choice.Device.ID, choice.SampleRate)
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Browse devices and pick one with a sample rate")
	return listCmd
}

func (a *App) renderCommand() *cobra.Command {
	var (
		tail     time.Duration
		bitDepth int
	)
	renderCmd := &cobra.Command{
		Use:   "render <in.wav> <out.wav>",
		Short: "Process a WAV file offline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := render.DefaultOptions()
			opts.Tail = a.cfg.Render.Tail
			opts.BitDepth = a.cfg.Render.BitDepth
			if cmd.Flags().Changed("tail") {
				opts.Tail = tail
			}
			if cmd.Flags().Changed("bit-depth") {
				opts.BitDepth = bitDepth
			}
			mode, err := processor.ParseChannelMode(a.cfg.Audio.ChannelMode)
			if err != nil {
				return err
			}
			opts.ChannelMode = mode
			opts.PreGain = a.cfg.Params.PreGain
			opts.PostGain = a.cfg.Params.PostGain

			stats, err := render.Render(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Rendered %s -> %s\n  %s\n", args[0], args[1], stats)
			return nil
		},
	}
	renderCmd.Flags().DurationVar(&tail, "tail", config.DefaultRenderTail,
		"Silence appended so the reverb rings out")
	renderCmd.Flags().IntVar(&bitDepth, "bit-depth", 0,
		"Output bit depth (16, 24 or 32); 0 keeps the input depth")
	return renderCmd
}

func (a *App) inspectCommand() *cobra.Command {
	var seconds float64
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the delay schedule, tap weights and impulse response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := analysis.Analyze(a.cfg.Audio.SampleRate, seconds)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s\n%s\n\n", build.Get(), plugin.Describe())
			_, err = report.WriteTo(a.stdout)
			return err
		},
	}
	inspectCmd.Flags().Float64Var(&seconds, "seconds", 3,
		"Length of the impulse response to analyse")
	return inspectCmd
}
