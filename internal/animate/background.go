// SPDX-License-Identifier: MIT
package animate

import (
	"math"

	"pulse/internal/hands"
)

// DefaultLayers is the number of stacked gradient layers.
const DefaultLayers = 3

// baseOpacity is applied cyclically when there are more layers.
var baseOpacity = []float64{1.0, 0.5, 0.3}

const (
	beatOpacityGain = 1.5
	handOpacityGain = 0.2
	fullTurnBPM     = 200 // Tempo at which the base angle completes a turn.
)

// Background styles a stack of gradient layers from tempo, beat and hands.
type Background struct {
	target LayerTarget
	width  float64
	height float64
	styles []LayerStyle
}

// NewBackground drives layers layers of target for a width x height
// viewport. layers < 1 uses DefaultLayers.
func NewBackground(target LayerTarget, width, height float64, layers int) *Background {
	if layers < 1 {
		layers = DefaultLayers
	}
	return &Background{
		target: target,
		width:  width,
		height: height,
		styles: make([]LayerStyle, layers),
	}
}

// Update computes and applies every layer style for one frame.
func (b *Background) Update(s State) {
	band := BandFor(s.BPM)
	angle := float64(s.BPM)/fullTurnBPM*360 + handRotation(s.Hands)
	cx, cy := b.center(s.Hands)

	for i := range b.styles {
		g := band.Gradients[i%len(band.Gradients)]

		opacity := baseOpacity[i%len(baseOpacity)]
		if s.IsBeat {
			opacity = math.Min(opacity*beatOpacityGain, 1)
		}
		if len(s.Hands) > 0 {
			opacity = math.Min(opacity+handOpacityGain, 1)
		}

		b.styles[i] = LayerStyle{
			Angle:   angle,
			Start:   g.Start,
			End:     g.End,
			Opacity: opacity,
			CenterX: cx,
			CenterY: cy,
		}
		b.target.SetLayer(i, b.styles[i])
	}
}

// Styles returns a copy of the styles applied by the last Update.
func (b *Background) Styles() []LayerStyle {
	out := make([]LayerStyle, len(b.styles))
	copy(out, b.styles)
	return out
}

// center returns the mean hand position in percent of the viewport, clamped
// to [0,100], or 50/50 with no hands.
func (b *Background) center(pts []hands.Point) (float64, float64) {
	x, y, ok := meanHand(pts)
	if !ok {
		return 50, 50
	}
	return percent(x, b.width), percent(y, b.height)
}

func percent(v, extent float64) float64 {
	if extent <= 0 {
		return 50
	}
	p := v / extent * 100
	if !finite(p) {
		return 50
	}
	return math.Min(math.Max(p, 0), 100)
}

// handRotation is the angle in degrees of the line from the first hand to
// the second, or 0 with fewer than two hands.
func handRotation(pts []hands.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	r := math.Atan2(pts[1].Y-pts[0].Y, pts[1].X-pts[0].X) * 180 / math.Pi
	if !finite(r) {
		return 0
	}
	return r
}
