// SPDX-License-Identifier: MIT

// Package animate turns the per-frame detection results into visuals: a
// layered gradient background, a particle field and a spectrum/waveform
// overlay. Every stage is synchronous and draws through a render target
// interface so the same code drives a raster backend, a browser client or a
// test recorder.
package animate

import (
	"math"

	"pulse/internal/hands"
)

// State is the read-only input every stage receives once per frame. Stages
// must not retain Hands across frames.
type State struct {
	BPM    int
	Hands  []hands.Point
	IsBeat bool
}

// meanHand returns the average hand position. ok is false with no hands.
func meanHand(pts []hands.Point) (x, y float64, ok bool) {
	if len(pts) == 0 {
		return 0, 0, false
	}
	for _, p := range pts {
		x += p.X
		y += p.Y
	}
	n := float64(len(pts))
	return x / n, y / n, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
