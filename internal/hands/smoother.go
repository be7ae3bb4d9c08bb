// SPDX-License-Identifier: MIT

// Package hands smooths hand positions reported by an external pose
// estimator and hands the latest detection from the estimator's goroutine to
// the frame loop.
package hands

// DefaultSmoothing is the weight given to each new raw sample.
const DefaultSmoothing = 0.3

// Point is a hand position in screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Smoother applies an exponential moving average per hand slot.
//
// Slots are positional: slot i is whatever hand the estimator reported i-th.
// Hands are not re-identified across frames, so two hands that swap order
// also swap smoothing streams. Whenever the number of hands changes the state
// is discarded and the raw positions become the new baseline.
type Smoother struct {
	alpha    float64
	smoothed []Point
}

// NewSmoother returns a Smoother with the given factor. Values outside (0,1]
// fall back to DefaultSmoothing.
func NewSmoother(alpha float64) *Smoother {
	if !(alpha > 0 && alpha <= 1) {
		alpha = DefaultSmoothing
	}
	return &Smoother{alpha: alpha}
}

// Update folds a new detection into the smoothed set and returns a copy of it.
func (s *Smoother) Update(raw []Point) []Point {
	if len(raw) != len(s.smoothed) {
		s.smoothed = append(s.smoothed[:0], raw...)
		return s.Positions()
	}

	keep := 1 - s.alpha
	for i, p := range raw {
		s.smoothed[i].X = s.smoothed[i].X*keep + p.X*s.alpha
		s.smoothed[i].Y = s.smoothed[i].Y*keep + p.Y*s.alpha
	}
	return s.Positions()
}

// Positions returns a copy of the current smoothed positions. The result is
// never nil so callers can range over it and marshal it as [].
func (s *Smoother) Positions() []Point {
	out := make([]Point, len(s.smoothed))
	copy(out, s.smoothed)
	return out
}

// Len returns the number of tracked hand slots.
func (s *Smoother) Len() int {
	return len(s.smoothed)
}

// Reset drops all smoothing state.
func (s *Smoother) Reset() {
	s.smoothed = s.smoothed[:0]
}
