// SPDX-License-Identifier: MIT
package audio

import "math"

func (e *Engine) EnableGate() {
	e.gateEnabled = true
}

func (e *Engine) DisableGate() {
	e.gateEnabled = false
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	threshold = min(max(threshold, 0), 1)
	e.gateThreshold = int32(threshold * float64(math.MaxInt32))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold) / float64(math.MaxInt32)
}

// GateStats returns how many buffers reached the analyser and how many the
// gate held back.
func (e *Engine) GateStats() (passed, gated uint64) {
	return e.passed.Load(), e.gated.Load()
}

// peakAmplitude returns the largest absolute sample without branching. The
// arithmetic runs in 64 bits so math.MinInt32 does not overflow.
func peakAmplitude(buffer []int32) int32 {
	var peak int64
	for _, sample := range buffer {
		s := int64(sample)
		mask := s >> 63
		amplitude := (s ^ mask) - mask
		diff := amplitude - peak
		peak += (diff & (diff >> 63)) ^ diff
	}
	return int32(min(peak, math.MaxInt32))
}
