// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band is a named frequency range, LowHz inclusive and HighHz exclusive.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range the way mixing engineers name it.
var DefaultBands = []Band{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// BandLevel is the mean spectrum byte of a band scaled to 0..1.
type BandLevel struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// BandMeter averages a byte spectrum over fixed bands. Measure reuses its
// scratch buffers; one goroutine at a time.
type BandMeter struct {
	bands  []Band
	sums   []float64
	counts []int
}

// NewBandMeter measures the given bands, or DefaultBands when none are given.
func NewBandMeter(bands ...Band) *BandMeter {
	if len(bands) == 0 {
		bands = DefaultBands
	}
	return &BandMeter{
		bands:  bands,
		sums:   make([]float64, len(bands)),
		counts: make([]int, len(bands)),
	}
}

// Measure returns one level per band for freq, where bin i sits at i*binHz.
// Bands with no bins in range read 0. A nil result means no spectrum.
func (m *BandMeter) Measure(freq []uint8, binHz float64) []BandLevel {
	if len(freq) == 0 || !(binHz > 0) {
		return nil
	}
	clear(m.sums)
	clear(m.counts)

	for i, v := range freq {
		hz := float64(i) * binHz
		for b, band := range m.bands {
			if hz >= band.LowHz && hz < band.HighHz {
				m.sums[b] += float64(v)
				m.counts[b]++
				break
			}
		}
	}

	out := make([]BandLevel, len(m.bands))
	for b, band := range m.bands {
		out[b].Name = band.Name
		if m.counts[b] > 0 {
			out[b].Level = m.sums[b] / float64(m.counts[b]) / 255
		}
	}
	return out
}
