// SPDX-License-Identifier: MIT

// Package render rasterizes the animation stages with fogleman/gg so frames
// can be snapshotted to PNG without a browser.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"pulse/internal/animate"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

var _ animate.Canvas = (*Raster)(nil)

// Raster is a transparent RGBA drawing surface.
type Raster struct {
	dc     *gg.Context
	width  float64
	height float64
}

// NewRaster allocates a width x height surface. Non-positive sizes are
// raised to one pixel.
func NewRaster(width, height int) *Raster {
	width, height = max(width, 1), max(height, 1)
	return &Raster{
		dc:     gg.NewContext(width, height),
		width:  float64(width),
		height: float64(height),
	}
}

func (r *Raster) Size() (float64, float64) {
	return r.width, r.height
}

// Clear resets every pixel to transparent.
func (r *Raster) Clear() {
	r.dc.SetColor(color.Transparent)
	r.dc.Clear()
}

func (r *Raster) FillCircle(x, y, radius float64, c colorful.Color, alpha float64) {
	r.dc.SetColor(nrgba(c, alpha))
	r.dc.DrawCircle(x, y, radius)
	r.dc.Fill()
}

func (r *Raster) FillRect(x, y, w, h float64, c colorful.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r.dc.SetColor(nrgba(c, 1))
	r.dc.DrawRectangle(x, y, w, h)
	r.dc.Fill()
}

func (r *Raster) Polyline(points []animate.Vec, c colorful.Color, alpha, width float64) {
	if len(points) < 2 {
		return
	}
	r.dc.SetColor(nrgba(c, alpha))
	r.dc.SetLineWidth(width)
	r.dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		r.dc.LineTo(p.X, p.Y)
	}
	r.dc.Stroke()
}

// Image returns the backing image. It is modified by later draw calls.
func (r *Raster) Image() image.Image {
	return r.dc.Image()
}

// DrawImage composites img over the surface at the origin.
func (r *Raster) DrawImage(img image.Image) {
	r.dc.DrawImage(img, 0, 0)
}

// SavePNG writes the surface to path.
func (r *Raster) SavePNG(path string) error {
	if err := r.dc.SavePNG(path); err != nil {
		return fmt.Errorf("save png %s: %w", path, err)
	}
	return nil
}

// EncodePNG writes the surface as PNG to w.
func (r *Raster) EncodePNG(w io.Writer) error {
	return r.dc.EncodePNG(w)
}

// nrgba converts a colour and alpha in [0,1] to a non-premultiplied colour.
func nrgba(c colorful.Color, alpha float64) color.NRGBA {
	c = c.Clamped()
	red, green, blue := c.RGB255()
	alpha = min(max(alpha, 0), 1)
	return color.NRGBA{R: red, G: green, B: blue, A: uint8(alpha*255 + 0.5)}
}
