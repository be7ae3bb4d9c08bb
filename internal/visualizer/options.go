// SPDX-License-Identifier: MIT
package visualizer

import (
	"math/rand/v2"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/animate"
	"pulse/internal/config"
	"pulse/internal/hands"
	"pulse/internal/observe"
	"pulse/internal/signal"
)

// Options configures a Visualizer. Zero fields take defaults.
type Options struct {
	Width     int
	Height    int
	FrameRate int
	Bars      int
	Layers    int

	Beat          analysis.Options
	HandSmoothing float64

	// Draw rasterizes the particle and spectrum stages every frame. The live
	// loop leaves it off because browser clients draw from the frame
	// messages; offline snapshots turn it on.
	Draw bool

	// Rand seeds particle spawning. nil picks a random seed.
	Rand *rand.Rand

	// Metrics defaults to observe.DefaultMetrics.
	Metrics *observe.Metrics
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = config.DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = config.DefaultHeight
	}
	if o.FrameRate <= 0 {
		o.FrameRate = config.DefaultFrameRate
	}
	if o.Bars <= 0 {
		o.Bars = animate.DefaultBars
	}
	if o.Layers <= 0 {
		o.Layers = animate.DefaultLayers
	}
	if o.HandSmoothing <= 0 {
		o.HandSmoothing = hands.DefaultSmoothing
	}
	if o.Metrics == nil {
		o.Metrics = observe.DefaultMetrics()
	}
	return o
}

// FrameInterval is the wall time between ticks.
func (o Options) FrameInterval() time.Duration {
	return time.Second / time.Duration(o.withDefaults().FrameRate)
}

// OptionsFromConfig maps the application configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		FrameRate: cfg.Render.FrameRate,
		Bars:      cfg.Render.BarCount,
		Beat: analysis.Options{
			Threshold:   cfg.Beat.Threshold,
			MinInterval: cfg.Beat.MinInterval.Seconds(),
			PulseWindow: cfg.Beat.PulseWindow.Seconds(),
			HistorySize: cfg.Beat.HistorySize,
			MinBPM:      cfg.Beat.MinBPM,
			MaxBPM:      cfg.Beat.MaxBPM,
		},
		HandSmoothing: cfg.Hands.Smoothing,
	}
}

// AnalyserOptions maps the audio configuration onto analyser options.
func AnalyserOptions(cfg *config.Config) signal.AnalyserOptions {
	return signal.AnalyserOptions{
		FFTSize:     cfg.Audio.FFTSize,
		SampleRate:  cfg.Audio.SampleRate,
		Smoothing:   cfg.Audio.Smoothing,
		NoSmoothing: cfg.Audio.Smoothing == 0,
		MinDecibels: cfg.Audio.MinDecibels,
		MaxDecibels: cfg.Audio.MaxDecibels,
	}
}
