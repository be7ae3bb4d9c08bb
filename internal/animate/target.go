// SPDX-License-Identifier: MIT
package animate

import (
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Vec is a point in canvas pixels.
type Vec struct {
	X, Y float64
}

// Canvas is an immediate-mode drawing surface.
type Canvas interface {
	Size() (width, height float64)
	Clear()
	FillCircle(x, y, r float64, c colorful.Color, alpha float64)
	FillRect(x, y, w, h float64, c colorful.Color)
	Polyline(points []Vec, c colorful.Color, alpha, width float64)
}

// LayerTarget receives the styling of the background layers. index is
// zero-based.
type LayerTarget interface {
	SetLayer(index int, style LayerStyle)
}

// LayerStyle is one background layer: a linear gradient, its opacity and the
// hand focus point in percent of the viewport.
type LayerStyle struct {
	Angle   float64 // Degrees, CSS convention (0 points up, 90 right).
	Start   colorful.Color
	End     colorful.Color
	Opacity float64
	CenterX float64
	CenterY float64
}

// CSS returns the layer gradient as a CSS background value.
func (s LayerStyle) CSS() string {
	return fmt.Sprintf("linear-gradient(%sdeg, %s 0%%, %s 100%%)",
		strconv.FormatFloat(s.Angle, 'f', -1, 64), s.Start.Hex(), s.End.Hex())
}

// Properties returns the custom properties the page uses for the hand focus.
func (s LayerStyle) Properties() map[string]string {
	return map[string]string{
		"--hand-x": strconv.FormatFloat(s.CenterX, 'f', -1, 64) + "%",
		"--hand-y": strconv.FormatFloat(s.CenterY, 'f', -1, 64) + "%",
	}
}
