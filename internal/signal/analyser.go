// SPDX-License-Identifier: MIT
package signal

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	applog "pulse/internal/log"
	"pulse/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser defaults, matching the browser analyser node.
const (
	DefaultFFTSize     = 2048
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

var (
	ErrFFTSize    = errors.New("fft size must be a power of two")
	ErrSampleRate = errors.New("sample rate must be positive")
	ErrDecibels   = errors.New("min decibels must be below max decibels")
	ErrSmoothing  = errors.New("smoothing must be in [0,1)")
)

// AnalyserOptions configures an Analyser. Zero values take the defaults,
// except Smoothing where 0 is a valid setting only through NoSmoothing.
type AnalyserOptions struct {
	FFTSize     int
	SampleRate  float64
	Smoothing   float64
	NoSmoothing bool
	MinDecibels float64
	MaxDecibels float64
}

// Analyser keeps the last FFTSize mono samples written by the capture side
// and turns them into byte buffers on demand. One goroutine writes, another
// polls.
type Analyser struct {
	fft        *fourier.FFT
	fftSize    int
	bins       int
	sampleRate float64
	smoothing  float64
	minDb      float64
	rangeDb    float64

	mu       sync.RWMutex
	ring     []float64 // Last fftSize samples; pos is the oldest.
	pos      int
	written  bool
	window   []float64    // Blackman coefficients.
	input    []float64    // Windowed, time-ordered copy of ring.
	coeffs   []complex128 // FFT output, fftSize/2+1 values.
	smoothed []float64    // Smoothed linear magnitudes per bin.
	last     []uint8      // Most recent frequency bytes, for AverageVolume.
}

// NewAnalyser validates opts and allocates every buffer up front so that
// Write never allocates.
func NewAnalyser(opts AnalyserOptions) (*Analyser, error) {
	if opts.FFTSize == 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if opts.Smoothing == 0 && !opts.NoSmoothing {
		opts.Smoothing = DefaultSmoothing
	}
	if opts.MinDecibels == 0 && opts.MaxDecibels == 0 {
		opts.MinDecibels, opts.MaxDecibels = DefaultMinDecibels, DefaultMaxDecibels
	}

	if !bitint.IsPowerOfTwo(opts.FFTSize) || opts.FFTSize < 32 {
		return nil, fmt.Errorf("%w: got %d, nearest is %d", ErrFFTSize, opts.FFTSize, bitint.NextPowerOfTwo(max(opts.FFTSize, 32)))
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %.1f", ErrSampleRate, opts.SampleRate)
	}
	if opts.MinDecibels >= opts.MaxDecibels {
		return nil, fmt.Errorf("%w: %.1f >= %.1f", ErrDecibels, opts.MinDecibels, opts.MaxDecibels)
	}
	if opts.Smoothing < 0 || opts.Smoothing >= 1 {
		return nil, fmt.Errorf("%w: got %.2f", ErrSmoothing, opts.Smoothing)
	}

	coeffs := make([]float64, opts.FFTSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Blackman(coeffs)

	bins := opts.FFTSize / 2
	applog.Infof("Signal: Initializing Analyser (Size: %d, Bins: %d, SampleRate: %.1f Hz, Smoothing: %.2f)",
		opts.FFTSize, bins, opts.SampleRate, opts.Smoothing)

	return &Analyser{
		fft:        fourier.NewFFT(opts.FFTSize),
		fftSize:    opts.FFTSize,
		bins:       bins,
		sampleRate: opts.SampleRate,
		smoothing:  opts.Smoothing,
		minDb:      opts.MinDecibels,
		rangeDb:    opts.MaxDecibels - opts.MinDecibels,
		ring:       make([]float64, opts.FFTSize),
		window:     coeffs,
		input:      make([]float64, opts.FFTSize),
		coeffs:     make([]complex128, opts.FFTSize/2+1),
		smoothed:   make([]float64, bins),
		last:       make([]uint8, bins),
	}, nil
}

// Write appends mono samples in [-1,1]. It is called from the capture
// callback and does not allocate.
func (a *Analyser) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) & (a.fftSize - 1)
	}
	a.written = true
	a.mu.Unlock()
}

// TimeDomain returns the newest fftSize/2 samples as bytes centered on 128.
func (a *Analyser) TimeDomain() []uint8 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.written {
		return nil
	}
	out := make([]uint8, a.bins)
	start := a.pos + a.fftSize - a.bins
	for i := range out {
		x := a.ring[(start+i)&(a.fftSize-1)]
		out[i] = toByte(128 * (1 + x))
	}
	return out
}

// FrequencyDomain windows the ring, runs the FFT and returns the smoothed
// decibel spectrum scaled to bytes. Each call advances the temporal
// smoothing, so it should be polled once per frame.
func (a *Analyser) FrequencyDomain() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.written {
		return nil
	}

	for i := range a.input {
		a.input[i] = a.ring[(a.pos+i)&(a.fftSize-1)] * a.window[i]
	}
	a.fft.Coefficients(a.coeffs, a.input)

	scale := 1 / float64(a.fftSize)
	for k := range a.bins {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		s := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s

		db := 20 * math.Log10(s)
		a.last[k] = toByte(255 * (db - a.minDb) / a.rangeDb)
	}

	out := make([]uint8, a.bins)
	copy(out, a.last)
	return out
}

// AverageVolume returns the mean of the last frequency buffer produced by
// FrequencyDomain, 0..255. It does not advance smoothing.
func (a *Analyser) AverageVolume() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var sum int
	for _, v := range a.last {
		sum += int(v)
	}
	return float64(sum) / float64(len(a.last))
}

// FrequencyForBin returns the center frequency (Hz) of a bin, or 0 when out of
// range.
func (a *Analyser) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= a.bins {
		return 0
	}
	return float64(bin) * a.sampleRate / float64(a.fftSize)
}

// FFTSize returns the configured FFT size.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// BinCount returns the length of the buffers returned by the Source methods.
func (a *Analyser) BinCount() int {
	return a.bins
}

// SampleRate returns the sample rate the analyser was configured with.
func (a *Analyser) SampleRate() float64 {
	return a.sampleRate
}

// Reset clears buffered audio and smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	clear(a.smoothed)
	clear(a.last)
	a.pos = 0
	a.written = false
}

// toByte floors v into [0,255]. NaN and -Inf map to 0.
func toByte(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
