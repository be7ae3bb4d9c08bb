// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestBandMeter(t *testing.T) {
	const binHz = 10.0
	freq := make([]uint8, 1024) // 0..10230 Hz
	for i := 2; i < 6; i++ {    // 20..50 Hz
		freq[i] = 255
	}
	for i := 50; i < 100; i++ { // 500..990 Hz, half of "mid"
		freq[i] = 102
	}

	got := NewBandMeter().Measure(freq, binHz)
	want := map[string]float64{
		"sub":     1,
		"bass":    0,
		"lowMid":  0,
		"mid":     102.0 / 255 * 50 / 150,
		"highMid": 0,
		"treble":  0,
	}
	if len(got) != len(DefaultBands) {
		t.Fatalf("got %d levels, want %d", len(got), len(DefaultBands))
	}
	for _, l := range got {
		if math.Abs(l.Level-want[l.Name]) > 1e-9 {
			t.Errorf("%s = %v, want %v", l.Name, l.Level, want[l.Name])
		}
	}
}

func TestBandMeterEdgeCases(t *testing.T) {
	m := NewBandMeter(Band{Name: "a", LowHz: 0, HighHz: 100}, Band{Name: "b", LowHz: 5000, HighHz: 6000})

	if m.Measure(nil, 10) != nil {
		t.Error("empty spectrum should yield nil")
	}
	if m.Measure([]uint8{1, 2}, 0) != nil {
		t.Error("zero bin width should yield nil")
	}

	got := m.Measure([]uint8{255, 255, 255}, 10)
	if got[0].Level != 1 || got[1].Level != 0 {
		t.Errorf("levels = %+v, want a=1 b=0 (out of range)", got)
	}
}

func BenchmarkBandMeter(b *testing.B) {
	m := NewBandMeter()
	freq := make([]uint8, 1024)
	b.ReportAllocs()
	for b.Loop() {
		m.Measure(freq, 44100.0/2048)
	}
}
