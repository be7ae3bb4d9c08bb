// SPDX-License-Identifier: MIT

// Package cmd parses the command line into a configuration.
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"pulse/internal/audio"
	"pulse/internal/config"
	"pulse/pkg/build"

	"github.com/spf13/cobra"
)

// Options is the parsed command line.
type Options struct {
	Config *config.Config

	// Analyze command.
	FramesDir string
	Every     int

	// List command.
	Interactive bool

	// Ran is false when cobra only printed help or the version.
	Ran bool
}

// flagValues holds flag values until the config file is loaded; only flags the
// user set are applied on top of it.
type flagValues struct {
	configPath string
	device     int
	sampleRate float64
	fftSize    int
	frameRate  int
	record     bool
	output     string
	verbose    bool
	tui        bool
	wsAddr     string
	udpAddr    string
	metrics    string
	logFrames  bool
}

// ParseArgs executes the command tree over args. stdout receives help and
// version output.
func ParseArgs(args []string, stdout io.Writer) (*Options, error) {
	info := build.GetBuildInfo()
	opts := &Options{}
	var fv flagValues

	load := func(cmd *cobra.Command, command string, cmdArgs []string) error {
		cfg, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		fv.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg.Command = command
		cfg.Args = cmdArgs
		opts.Config = cfg
		opts.Ran = true
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "", nil)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetOut(stdout)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "list", nil)
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Pick a device and sample rate in a terminal UI")
	rootCmd.AddCommand(listCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE.wav",
		Short: "Run the animation offline over a WAV file and report beats and tempo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Every < 1 {
				return fmt.Errorf("--every must be at least 1, got %d", opts.Every)
			}
			return load(cmd, "analyze", args)
		},
	}
	analyzeCmd.Flags().StringVar(&opts.FramesDir, "frames", "",
		"Write PNG snapshots of the composed frame into this directory")
	analyzeCmd.Flags().IntVar(&opts.Every, "every", 30,
		"Snapshot every N frames when --frames is set")
	rootCmd.AddCommand(analyzeCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "",
		"Path to a YAML config file (default ./config.yaml if present)")
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVar(&fv.fftSize, "fft-size", config.DefaultFFTSize,
		"Analyser FFT size, a power of two")
	pf.IntVar(&fv.frameRate, "fps", config.DefaultFrameRate,
		"Animation frames per second")
	pf.BoolVarP(&fv.record, "record", "r", false,
		"Record audio from the input device to WAV")
	pf.StringVarP(&fv.output, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show debug output")
	pf.BoolVar(&fv.tui, "tui", false,
		"Show the live terminal monitor")
	pf.StringVar(&fv.wsAddr, "ws", config.DefaultWebSocketAddress,
		"WebSocket listen address; empty disables it")
	pf.StringVar(&fv.udpAddr, "udp", "",
		"Send state packets to this host:port")
	pf.StringVar(&fv.metrics, "metrics", "",
		"Serve Prometheus metrics on this address")
	pf.BoolVar(&fv.logFrames, "log-frames", false,
		"Log a summary of every frame at debug level")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}

// apply copies flags the user set onto cfg.
func (fv *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = fv.device
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if changed("fft-size") {
		cfg.Audio.FFTSize = fv.fftSize
	}
	if changed("fps") {
		cfg.Render.FrameRate = fv.frameRate
	}
	if changed("record") {
		cfg.Recording.Enabled = fv.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = fv.output
	}
	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = audio.DefaultRecordingName(time.Now())
	}
	if changed("verbose") && fv.verbose {
		cfg.Debug = true
	}
	if changed("tui") {
		cfg.TUI = fv.tui
	}
	if changed("ws") {
		cfg.Transport.WebSocketAddress = fv.wsAddr
		cfg.Transport.WebSocketEnabled = fv.wsAddr != ""
	}
	if changed("udp") {
		cfg.Transport.UDPTargetAddress = fv.udpAddr
		cfg.Transport.UDPEnabled = fv.udpAddr != ""
	}
	if changed("metrics") {
		cfg.Metrics.Address = fv.metrics
		cfg.Metrics.Enabled = fv.metrics != ""
	}
	if changed("log-frames") {
		cfg.Transport.LogFrames = fv.logFrames
	}
}

// SelectionFlags renders a device choice as the flags that reproduce it.
func SelectionFlags(deviceID int, sampleRate float64) string {
	return "--device " + strconv.Itoa(deviceID) + " --sample-rate " + strconv.FormatFloat(sampleRate, 'f', -1, 64)
}
