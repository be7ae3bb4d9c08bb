// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"runtime"
	"syscall"

	"pulse/cmd"
	"pulse/internal/audio"
	"pulse/internal/config"
	"pulse/internal/hands"
	applog "pulse/internal/log"
	"pulse/internal/observe"
	"pulse/internal/signal"
	"pulse/internal/transport"
	"pulse/internal/transport/udp"
	"pulse/internal/tui"
	"pulse/internal/visualizer"
	"pulse/pkg/build"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

// main runs in three phases:
//
// 1. Startup (cold path): build info, argument parsing, one-off commands.
// 2. Live (hot path): PortAudio feeds the analyser while the frame loop,
// transports and optional monitor run side by side.
// 3. Shutdown (cold path): the first signal or monitor quit cancels
// everything, recording is finalized and PortAudio terminated.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("Main: Development build (%v)", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		applog.Fatalf("Main: %v", err)
	}
	if !opts.Ran {
		return
	}
	cfg := opts.Config
	cfg.ApplyLogLevel()
	applog.Infof("Main: %s", build.GetBuildInfo())

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Command {
	case "list":
		err = listDevices(opts.Interactive)
	case "analyze":
		err = analyze(ctx, cfg, opts)
	default:
		err = live(ctx, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		applog.Fatalf("Main: %v", err)
	}
}

func listDevices(interactive bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !interactive {
		return audio.ListDevices(os.Stdout)
	}
	sel, ok, err := tui.StartDeviceListUI(audio.HostDevices)
	if err != nil || !ok {
		return err
	}
	fmt.Printf("Selected %s\nRun with: %s\n", sel.Name, cmd.SelectionFlags(sel.DeviceID, sel.SampleRate))
	return nil
}

func analyze(ctx context.Context, cfg *config.Config, opts *cmd.Options) error {
	src, err := signal.OpenWAV(cfg.Args[0], visualizer.AnalyserOptions(cfg))
	if err != nil {
		return err
	}

	var transports []transport.Transport
	if cfg.Transport.LogFrames {
		transports = append(transports, transport.NewLoggingTransport())
	}

	report, err := visualizer.Analyze(ctx, src, visualizer.AnalyzeOptions{
		Options:    visualizer.OptionsFromConfig(cfg),
		FramesDir:  opts.FramesDir,
		Every:      opts.Every,
		Transports: transports,
	})
	if err != nil {
		return err
	}

	label := color.New(color.Faint)
	value := color.New(color.Bold)
	beat := color.New(color.FgMagenta)

	label.Print("File:      ")
	value.Printf("%s (%s)\n", cfg.Args[0], report.Duration)
	label.Print("Frames:    ")
	value.Println(report.Frames)
	label.Print("Beats:     ")
	value.Println(len(report.Beats))
	for _, b := range report.Beats {
		beat.Printf("           %8.3fs\n", b.Seconds())
	}
	label.Print("Tempo:     ")
	color.New(color.FgGreen, color.Bold).Printf("%d BPM\n", report.BPM)
	if len(report.Snapshots) > 0 {
		label.Print("Snapshots: ")
		value.Printf("%d in %s\n", len(report.Snapshots), opts.FramesDir)
	}
	return nil
}

func live(ctx context.Context, cfg *config.Config) error {
	// One thread for the PortAudio callback, one for everything else.
	runtime.GOMAXPROCS(2)

	if cfg.Metrics.Enabled {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: build.GetBuildInfo().Version})
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}
	metrics := observe.DefaultMetrics()

	analyser, err := signal.NewAnalyser(visualizer.AnalyserOptions(cfg))
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	engine, err := audio.NewEngine(cfg, analyser)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Main: Error closing audio engine: %v", err)
		}
	}()
	if err := engine.StartInputStream(); err != nil {
		return err
	}
	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			return err
		}
	}

	feed := hands.NewFeed(cfg.Hands.MaxHands, float64(cfg.Render.Width), float64(cfg.Render.Height))

	var transports []transport.Transport
	var ws *transport.WebSocketTransport
	if cfg.Transport.WebSocketEnabled {
		ws = transport.NewWebSocketTransport(feed, metrics)
		transports = append(transports, ws)
	}
	if cfg.Transport.LogFrames {
		transports = append(transports, transport.NewLoggingTransport())
	}

	vopts := visualizer.OptionsFromConfig(cfg)
	vopts.Metrics = metrics
	vis := visualizer.New(analyser, feed, vopts, transports...)

	var pub *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()
		if pub, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, vis); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return vis.Run(ctx) })

	if ws != nil {
		g.Go(func() error { return ws.Serve(ctx, cfg.Transport.WebSocketAddress) })
	}
	if cfg.Metrics.Enabled {
		g.Go(func() error { return observe.Serve(ctx, cfg.Metrics.Address) })
	}
	if pub != nil {
		g.Go(func() error { return pub.Run(ctx) })
	}
	if cfg.TUI {
		g.Go(func() error {
			defer cancel()
			return tui.RunMonitor(ctx, func() tui.Status {
				f, ok := vis.Latest()
				s := tui.Status{Frame: f, HasFrame: ok, Volume: analyser.AverageVolume(), Paused: vis.Paused()}
				if ws != nil {
					s.Clients = ws.Clients()
				}
				return s
			}, vis)
		})
	} else {
		applog.Infof("Main: Running, press Ctrl+C to stop")
	}

	err = g.Wait()
	for _, t := range transports {
		if cerr := t.Close(); cerr != nil && !errors.Is(cerr, transport.ErrClosed) {
			applog.Warnf("Main: Closing %T: %v", t, cerr)
		}
	}
	applog.Infof("Main: Shut down")
	return err
}
