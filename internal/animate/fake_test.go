// SPDX-License-Identifier: MIT
package animate

import "github.com/lucasb-eyer/go-colorful"

type drawOp struct {
	kind       string // clear, circle, rect, line
	x, y, w, h float64
	c          colorful.Color
	alpha      float64
	points     []Vec
}

// recordingCanvas keeps every draw call.
type recordingCanvas struct {
	width, height float64
	ops           []drawOp
}

func newRecordingCanvas(w, h float64) *recordingCanvas {
	return &recordingCanvas{width: w, height: h}
}

func (r *recordingCanvas) Size() (float64, float64) { return r.width, r.height }

func (r *recordingCanvas) Clear() {
	r.ops = append(r.ops, drawOp{kind: "clear"})
}

func (r *recordingCanvas) FillCircle(x, y, rad float64, c colorful.Color, alpha float64) {
	r.ops = append(r.ops, drawOp{kind: "circle", x: x, y: y, w: rad, c: c, alpha: alpha})
}

func (r *recordingCanvas) FillRect(x, y, w, h float64, c colorful.Color) {
	r.ops = append(r.ops, drawOp{kind: "rect", x: x, y: y, w: w, h: h, c: c, alpha: 1})
}

func (r *recordingCanvas) Polyline(points []Vec, c colorful.Color, alpha, width float64) {
	pts := make([]Vec, len(points))
	copy(pts, points)
	r.ops = append(r.ops, drawOp{kind: "line", w: width, c: c, alpha: alpha, points: pts})
}

func (r *recordingCanvas) count(kind string) int {
	n := 0
	for _, op := range r.ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}

// recordingLayers keeps the latest style per layer.
type recordingLayers struct {
	styles map[int]LayerStyle
	calls  int
}

func (r *recordingLayers) SetLayer(i int, s LayerStyle) {
	if r.styles == nil {
		r.styles = make(map[int]LayerStyle)
	}
	r.styles[i] = s
	r.calls++
}
