// SPDX-License-Identifier: MIT
package visualizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	applog "pulse/internal/log"
	"pulse/internal/signal"
	"pulse/internal/transport"
)

// AnalyzeOptions controls an offline run over a WAV file.
type AnalyzeOptions struct {
	Options

	// FramesDir receives a PNG snapshot every Every frames when set. Drawing
	// is switched on automatically.
	FramesDir string
	Every     int

	Transports []transport.Transport
}

// Report summarizes an offline run.
type Report struct {
	Frames    int
	Beats     []time.Duration // Registered beat times from the start of the file.
	BPM       int             // Tempo estimate after the last frame.
	Duration  time.Duration
	Snapshots []string
}

// Analyze plays src through a Visualizer in virtual time, one frame interval
// per tick, until the file is exhausted or ctx is cancelled.
func Analyze(ctx context.Context, src *signal.WAVSource, opts AnalyzeOptions) (Report, error) {
	if opts.FramesDir != "" {
		opts.Draw = true
		if opts.Every <= 0 {
			opts.Every = 1
		}
		if err := os.MkdirAll(opts.FramesDir, 0o755); err != nil {
			return Report{}, fmt.Errorf("frames dir: %w", err)
		}
	}

	v := New(src, nil, opts.Options, opts.Transports...)
	step := v.opts.FrameInterval()

	var (
		report Report
		now    time.Duration
	)
	for !src.Done() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		src.Advance(step)
		now += step

		frame, _ := v.Tick(now)
		report.Frames++
		report.BPM = frame.BPM
		if frame.Beat {
			report.Beats = append(report.Beats, now)
		}

		if opts.FramesDir != "" && report.Frames%opts.Every == 0 {
			path := filepath.Join(opts.FramesDir, fmt.Sprintf("frame-%06d.png", report.Frames))
			if err := v.SavePNG(path); err != nil {
				return report, err
			}
			report.Snapshots = append(report.Snapshots, path)
		}
	}
	report.Duration = src.Duration()

	applog.Infof("Visualizer: Analyzed %s in %d frames, %d beats, %d BPM",
		report.Duration, report.Frames, len(report.Beats), report.BPM)
	return report, nil
}
