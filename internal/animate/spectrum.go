// SPDX-License-Identifier: MIT
package animate

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultBars is the number of frequency bars.
const DefaultBars = 64

const (
	barHeightRatio = 0.4 // Tallest bar as a share of canvas height.
	barGap         = 2
	handHueShift   = 60
	barSaturation  = 0.7
	barLightness   = 0.6
	waveAlpha      = 0.5
	waveWidth      = 2
)

var white = colorful.Color{R: 1, G: 1, B: 1}

// Spectrum draws mirrored frequency bars and the waveform.
type Spectrum struct {
	canvas Canvas
	bars   int
	line   []Vec // Reused waveform points.
}

// NewSpectrum draws bars bars onto canvas. bars < 1 uses DefaultBars.
func NewSpectrum(canvas Canvas, bars int) *Spectrum {
	if bars < 1 {
		bars = DefaultBars
	}
	return &Spectrum{canvas: canvas, bars: bars}
}

// Render draws one frame. It does nothing until both buffers are available.
func (s *Spectrum) Render(freq, wave []uint8, st State) {
	if len(freq) == 0 || len(wave) == 0 {
		return
	}
	w, h := s.canvas.Size()
	s.canvas.Clear()
	s.drawBars(freq, w, h, handY(st, h))
	s.drawWave(wave, w, h)
}

func (s *Spectrum) drawBars(freq []uint8, w, h, hy float64) {
	barWidth := w / float64(s.bars)
	cy := h / 2
	for i := range s.bars {
		v := freq[i*len(freq)/s.bars]
		bh := float64(v) / 255 * h * barHeightRatio
		c := BarColor(i, s.bars, hy)
		x := float64(i) * barWidth
		bw := math.Max(barWidth-barGap, 0)

		s.canvas.FillRect(x, cy-bh/2, bw, bh/2, c)
		s.canvas.FillRect(x, cy, bw, bh/2, c)
	}
}

func (s *Spectrum) drawWave(wave []uint8, w, h float64) {
	slice := w / float64(len(wave))
	s.line = s.line[:0]
	for i, v := range wave {
		s.line = append(s.line, Vec{X: float64(i) * slice, Y: float64(v) / 128 * h / 2})
	}
	s.canvas.Polyline(s.line, white, waveAlpha, waveWidth)
}

// BarColor returns the colour of bar i out of n for a normalized hand height
// (0 top, 1 bottom).
func BarColor(i, n int, handY float64) colorful.Color {
	hue := float64(i)/float64(n)*360 + handY*handHueShift
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsl(hue, barSaturation, barLightness)
}

// handY is the first hand's vertical position normalized to the canvas
// height, or 0.5 with no hands.
func handY(st State, h float64) float64 {
	if len(st.Hands) == 0 || h <= 0 {
		return 0.5
	}
	y := st.Hands[0].Y / h
	if !finite(y) {
		return 0.5
	}
	return y
}
