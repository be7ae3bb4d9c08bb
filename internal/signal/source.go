// SPDX-License-Identifier: MIT

// Package signal provides the byte-level audio views the animation frame loop
// reads once per frame: a time-domain waveform and a frequency spectrum, both
// as unsigned 8-bit buffers the way a browser analyser node reports them.
package signal

// Source is polled once per frame. Both methods return a fresh buffer owned by
// the caller, or nil when no audio has been seen yet.
//
// TimeDomain samples are centered on 128 (silence). FrequencyDomain bins are
// 0..255 magnitudes on a decibel scale, lowest frequency first.
type Source interface {
	TimeDomain() []uint8
	FrequencyDomain() []uint8
}

var (
	_ Source = (*Analyser)(nil)
	_ Source = (*WAVSource)(nil)
	_ Source = (*Static)(nil)
)
