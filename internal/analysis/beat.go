// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	applog "pulse/internal/log"

	"gonum.org/v1/gonum/stat"
)

// Defaults for the energy beat detector. Energy is the mean squared amplitude
// of a frame normalized to [-1,1], so 0.3 is a loud, dense signal.
const (
	DefaultThreshold   = 0.3
	DefaultMinInterval = 0.3 // seconds between registered beats (200 BPM)
	DefaultPulseWindow = 0.1 // seconds isBeat stays true after a beat
	DefaultHistorySize = 10
	DefaultMinBPM      = 60
	DefaultMaxBPM      = 200

	// sampleMidpoint is the unsigned byte value of silence.
	sampleMidpoint = 128
)

// Options tunes the BeatDetector. Zero fields take the defaults.
type Options struct {
	Threshold   float64 // Energy above which a frame is considered loud.
	MinInterval float64 // Debounce between registered beats, seconds.
	PulseWindow float64 // Time after a beat during which IsBeat reads true, seconds.
	HistorySize int     // Registered beats kept for the tempo estimate.
	MinBPM      int
	MaxBPM      int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MinInterval <= 0 {
		o.MinInterval = DefaultMinInterval
	}
	if o.PulseWindow <= 0 {
		o.PulseWindow = DefaultPulseWindow
	}
	if o.HistorySize < 2 {
		o.HistorySize = DefaultHistorySize
	}
	if o.MinBPM <= 0 {
		o.MinBPM = DefaultMinBPM
	}
	if o.MaxBPM < o.MinBPM {
		o.MaxBPM = DefaultMaxBPM
	}
	return o
}

// Beat is the result of one detector update.
type Beat struct {
	BPM    int     // Current tempo estimate, 0 until two beats were registered.
	Energy float64 // Mean squared normalized amplitude of the frame.

	// Registered is true on the single frame a beat event was recorded.
	Registered bool

	// IsBeat is the looser pulse predicate used for animation: the frame is
	// loud and the last registered beat is within the pulse window. It can
	// stay true for several consecutive frames around one registered beat.
	IsBeat bool
}

// BeatDetector registers beats when frame energy crosses a fixed threshold,
// debounced by a minimum interval, and estimates tempo from the mean gap
// between the most recent beats.
type BeatDetector struct {
	opts Options

	history  []float64 // Registered beat times, oldest first.
	gaps     []float64 // Scratch buffer for consecutive gaps.
	lastBeat float64
	hasBeat  bool // lastBeat is only meaningful once a beat was registered.
	bpm      int
}

// NewBeatDetector creates a detector with the given options.
func NewBeatDetector(opts Options) *BeatDetector {
	opts = opts.withDefaults()
	applog.Infof("Analysis: Initializing BeatDetector (Threshold: %.2f, MinInterval: %.2fs, History: %d)",
		opts.Threshold, opts.MinInterval, opts.HistorySize)
	return &BeatDetector{
		opts:    opts,
		history: make([]float64, 0, opts.HistorySize),
		gaps:    make([]float64, 0, opts.HistorySize-1),
	}
}

// Update analyzes one time-domain frame of unsigned 8-bit samples centered on
// 128. now is a monotonic timestamp in seconds and may start at zero. The
// first loud frame always registers. An empty frame changes nothing and
// reports the current tempo with zero energy.
func (d *BeatDetector) Update(frame []uint8, now float64) Beat {
	if len(frame) == 0 {
		return Beat{BPM: d.bpm}
	}

	energy := Energy(frame)
	loud := energy > d.opts.Threshold

	registered := false
	if loud && (!d.hasBeat || now-d.lastBeat > d.opts.MinInterval) {
		d.register(now)
		registered = true
	}

	return Beat{
		BPM:        d.bpm,
		Energy:     energy,
		Registered: registered,
		IsBeat:     loud && d.hasBeat && now-d.lastBeat < d.opts.PulseWindow,
	}
}

// register appends a beat, evicting the oldest when the history is full, and
// recomputes the tempo.
func (d *BeatDetector) register(now float64) {
	if len(d.history) == d.opts.HistorySize {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, now)
	d.lastBeat = now
	d.hasBeat = true

	if len(d.history) < 2 {
		return
	}

	d.gaps = d.gaps[:0]
	for i := 1; i < len(d.history); i++ {
		d.gaps = append(d.gaps, d.history[i]-d.history[i-1])
	}
	mean := stat.Mean(d.gaps, nil)
	if mean <= 0 || math.IsNaN(mean) {
		// Out of order timestamps; keep the previous estimate.
		return
	}

	bpm := int(math.Round(60 / mean))
	d.bpm = min(max(bpm, d.opts.MinBPM), d.opts.MaxBPM)
	if applog.Enabled(applog.LevelDebug) {
		applog.Debugf("Analysis: Beat at %.3fs, tempo %d BPM (%d beats)", now, d.bpm, len(d.history))
	}
}

// BPM returns the current tempo estimate.
func (d *BeatDetector) BPM() int {
	return d.bpm
}

// History returns a copy of the registered beat times, oldest first.
func (d *BeatDetector) History() []float64 {
	out := make([]float64, len(d.history))
	copy(out, d.history)
	return out
}

// Reset forgets all beats and the tempo estimate.
func (d *BeatDetector) Reset() {
	d.history = d.history[:0]
	d.lastBeat = 0
	d.hasBeat = false
	d.bpm = 0
}

// Energy returns the mean squared amplitude of an unsigned 8-bit frame after
// normalizing each sample to (s-128)/128. It is not clamped.
func Energy(frame []uint8) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(int(s)-sampleMidpoint) / sampleMidpoint
		sum += v * v
	}
	return sum / float64(len(frame))
}
