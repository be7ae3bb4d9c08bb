// SPDX-License-Identifier: MIT

// Package visualizer owns one instance of every animation component and
// drives them from a single frame loop: poll audio and hands, detect beats,
// update the stages, publish a Frame.
package visualizer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/animate"
	"pulse/internal/hands"
	applog "pulse/internal/log"
	"pulse/internal/observe"
	"pulse/internal/render"
	"pulse/internal/signal"
	"pulse/internal/transport"
	"pulse/internal/transport/udp"
)

// binResolver is implemented by sources that know their bin spacing, which
// enables per-band levels in frames.
type binResolver interface {
	FrequencyForBin(bin int) float64
}

// HandSource is polled for new hand detections once per frame.
type HandSource interface {
	Poll(lastSeq uint64) (points []hands.Point, seq uint64, ok bool)
}

var (
	_ HandSource         = (*hands.Feed)(nil)
	_ udp.SnapshotSource = (*Visualizer)(nil)
)

// Visualizer is the frame loop. Tick must be called from one goroutine;
// Latest, Snapshot, Pause and Resume may be called from any.
type Visualizer struct {
	opts       Options
	source     signal.Source
	hands      HandSource
	transports []transport.Transport
	metrics    *observe.Metrics

	detector   *analysis.BeatDetector
	smoother   *hands.Smoother
	background *animate.Background
	particles  *animate.ParticleSystem
	spectrum   *animate.Spectrum
	bands      *analysis.BandMeter

	layers    *render.Layers
	particleC *render.Raster
	spectrumC *render.Raster
	composite *render.Raster

	handSeq  uint64
	smoothed []hands.Point
	seq      uint64

	paused atomic.Bool

	mu       sync.RWMutex
	latest   Frame
	hasFrame bool
}

// New wires the components. handSource may be nil when no hand tracking is
// connected.
func New(source signal.Source, handSource HandSource, opts Options, transports ...transport.Transport) *Visualizer {
	opts = opts.withDefaults()
	w, h := float64(opts.Width), float64(opts.Height)

	layers := render.NewLayers()
	particleC := render.NewRaster(opts.Width, opts.Height)
	spectrumC := render.NewRaster(opts.Width, opts.Height)

	applog.Infof("Visualizer: Initializing (%dx%d @ %d fps, %d bars, %d transports)",
		opts.Width, opts.Height, opts.FrameRate, opts.Bars, len(transports))

	return &Visualizer{
		opts:       opts,
		source:     source,
		hands:      handSource,
		transports: transports,
		metrics:    opts.Metrics,
		detector:   analysis.NewBeatDetector(opts.Beat),
		smoother:   hands.NewSmoother(opts.HandSmoothing),
		background: animate.NewBackground(layers, w, h, opts.Layers),
		particles:  animate.NewParticleSystem(particleC, opts.Rand),
		spectrum:   animate.NewSpectrum(spectrumC, opts.Bars),
		bands:      analysis.NewBandMeter(),
		layers:     layers,
		particleC:  particleC,
		spectrumC:  spectrumC,
		smoothed:   []hands.Point{},
	}
}

// Tick runs one frame at now, the monotonic time since the loop started. It
// returns false without touching any state while paused.
func (v *Visualizer) Tick(now time.Duration) (Frame, bool) {
	if v.paused.Load() {
		return Frame{}, false
	}
	start := time.Now()

	wave := v.source.TimeDomain()
	freq := v.source.FrequencyDomain()
	beat := v.detector.Update(wave, now.Seconds())

	if v.hands != nil {
		if pts, seq, ok := v.hands.Poll(v.handSeq); ok {
			v.handSeq = seq
			v.smoothed = v.smoother.Update(pts)
		}
	}

	state := animate.State{BPM: beat.BPM, Hands: v.smoothed, IsBeat: beat.IsBeat}
	v.background.Update(state)
	v.particles.Update(state)
	if v.opts.Draw {
		v.particles.Render()
		v.spectrum.Render(freq, wave, state)
	}

	var bands []analysis.BandLevel
	if r, ok := v.source.(binResolver); ok {
		bands = v.bands.Measure(freq, r.FrequencyForBin(1))
	}

	v.seq++
	frame := Frame{
		Seq:       v.seq,
		Time:      now.Seconds(),
		BPM:       beat.BPM,
		Energy:    beat.Energy,
		IsBeat:    beat.IsBeat,
		Beat:      beat.Registered,
		Hands:     v.smoothed,
		Layers:    layersFrom(v.background.Styles()),
		Particles: v.particles.Len(),
		Bands:     bands,
	}

	v.mu.Lock()
	v.latest = frame
	v.hasFrame = true
	v.mu.Unlock()

	for _, t := range v.transports {
		if err := t.Send(frame); err != nil {
			applog.Debugf("Visualizer: %T dropped frame %d: %v", t, frame.Seq, err)
		}
	}

	v.metrics.RecordFrame(context.Background(), time.Since(start), frame.BPM, frame.Particles, frame.Beat)
	return frame, true
}

// Run ticks at the configured frame rate until ctx is cancelled.
func (v *Visualizer) Run(ctx context.Context) error {
	interval := v.opts.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	applog.Infof("Visualizer: Frame loop started (interval %s)", interval)
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			applog.Infof("Visualizer: Frame loop stopped after %d frames", v.seq)
			return nil
		case <-ticker.C:
			v.Tick(time.Since(start))
		}
	}
}

// Pause stops frames from changing any state until Resume.
func (v *Visualizer) Pause() {
	if !v.paused.Swap(true) {
		applog.Infof("Visualizer: Paused")
	}
}

// Resume undoes Pause.
func (v *Visualizer) Resume() {
	if v.paused.Swap(false) {
		applog.Infof("Visualizer: Resumed")
	}
}

// Toggle flips between paused and playing and reports the new paused state.
func (v *Visualizer) Toggle() bool {
	if v.Paused() {
		v.Resume()
		return false
	}
	v.Pause()
	return true
}

// Paused reports whether the loop is paused.
func (v *Visualizer) Paused() bool {
	return v.paused.Load()
}

// Latest returns the most recent frame. ok is false before the first tick.
func (v *Visualizer) Latest() (Frame, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.latest, v.hasFrame
}

// Snapshot implements udp.SnapshotSource.
func (v *Visualizer) Snapshot() (udp.Snapshot, bool) {
	f, ok := v.Latest()
	if !ok {
		return udp.Snapshot{}, false
	}
	return f.Snapshot(), true
}

// History returns the registered beat times in seconds, oldest first.
func (v *Visualizer) History() []float64 {
	return v.detector.History()
}

// SavePNG composites the background layers and, when drawing is enabled,
// the particle and spectrum stages, and writes the result to path. It must
// be called from the goroutine that calls Tick.
func (v *Visualizer) SavePNG(path string) error {
	if v.composite == nil {
		v.composite = render.NewRaster(v.opts.Width, v.opts.Height)
	}
	if v.opts.Draw {
		render.Compose(v.composite, v.layers, v.particleC, v.spectrumC)
	} else {
		render.Compose(v.composite, v.layers)
	}
	if err := v.composite.SavePNG(path); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}
