// SPDX-License-Identifier: MIT

// Package utils holds signal generators and fakes shared by tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport interfaces for testing by keeping
// every message it is asked to send.
type MockTransport struct {
	mu       sync.Mutex
	Messages []any
	Closed   bool
	Err      error // Returned from Send when set.
}

// Send stores the message for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Sent returns a copy of the messages received so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// EnergyFrame returns an unsigned 8-bit square wave centered on 128 whose
// mean squared normalized amplitude is as close to energy as byte precision
// allows. energy <= 0 yields silence.
func EnergyFrame(size int, energy float64) []uint8 {
	frame := make([]uint8, size)
	amp := 0
	if energy > 0 {
		amp = int(math.Round(128 * math.Sqrt(energy)))
	}
	amp = min(amp, 127)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = uint8(128 + amp)
		} else {
			frame[i] = uint8(128 - amp)
		}
	}
	return frame
}

// GenerateSineWave returns size float32 samples of a sine at frequency Hz
// with the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in data[startBin:endBin+1].
func FindPeakBin(data []uint8, startBin, endBin int) int {
	if len(data) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(data)-1)

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if data[bin] > data[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
