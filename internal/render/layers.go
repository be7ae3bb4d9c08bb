// SPDX-License-Identifier: MIT
package render

import (
	"math"
	"sync"

	"pulse/internal/animate"

	"github.com/fogleman/gg"
)

var _ animate.LayerTarget = (*Layers)(nil)

// Layers stores the background layer styles and paints them as gradients.
// SetLayer is called from the frame loop while snapshots may be painted from
// another goroutine.
type Layers struct {
	mu     sync.Mutex
	styles []animate.LayerStyle
}

// NewLayers returns an empty layer stack.
func NewLayers() *Layers {
	return &Layers{}
}

// SetLayer implements animate.LayerTarget. The stack grows as needed.
func (l *Layers) SetLayer(index int, style animate.LayerStyle) {
	if index < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.styles) <= index {
		l.styles = append(l.styles, animate.LayerStyle{})
	}
	l.styles[index] = style
}

// Styles returns a copy of the current stack, bottom layer first.
func (l *Layers) Styles() []animate.LayerStyle {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]animate.LayerStyle, len(l.styles))
	copy(out, l.styles)
	return out
}

// Paint draws every layer over dst, bottom first. Each gradient runs along
// the CSS angle through the layer's hand focus point, with the CSS gradient
// line length so the stops land on the corners like a browser draws them.
func (l *Layers) Paint(dst *Raster) {
	w, h := dst.Size()
	for _, s := range l.Styles() {
		if s.Opacity <= 0 {
			continue
		}
		rad := s.Angle * math.Pi / 180
		dx, dy := math.Sin(rad), -math.Cos(rad)
		half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
		cx, cy := s.CenterX/100*w, s.CenterY/100*h

		grad := gg.NewLinearGradient(cx-dx*half, cy-dy*half, cx+dx*half, cy+dy*half)
		grad.AddColorStop(0, nrgba(s.Start, s.Opacity))
		grad.AddColorStop(1, nrgba(s.End, s.Opacity))

		dst.dc.SetFillStyle(grad)
		dst.dc.DrawRectangle(0, 0, w, h)
		dst.dc.Fill()
	}
}

// Compose clears dst, paints the layer stack and draws each overlay on top.
func Compose(dst *Raster, layers *Layers, overlays ...*Raster) {
	dst.Clear()
	if layers != nil {
		layers.Paint(dst)
	}
	for _, o := range overlays {
		if o != nil {
			dst.DrawImage(o.Image())
		}
	}
}
