// SPDX-License-Identifier: MIT
package signal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	applog "pulse/internal/log"

	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a valid WAV file")

// WAVSource plays a decoded WAV file into an Analyser. The playhead only
// moves when Advance is called, so offline analysis steps in virtual time.
type WAVSource struct {
	*Analyser

	samples    []float32 // Mono, normalized to [-1,1].
	sampleRate int
	pos        int
	clock      time.Duration // Sum of every Advance.
}

// OpenWAV decodes the file at path. The analyser sample rate is taken from the
// file and overrides opts.SampleRate.
func OpenWAV(path string, opts AnalyserOptions) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	src, err := NewWAVSource(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// NewWAVSource decodes a whole WAV stream and downmixes it to mono.
func NewWAVSource(r io.ReadSeeker, opts AnalyserOptions) (*WAVSource, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format chunk", ErrNotWAV)
	}

	channels := buf.Format.NumChannels
	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := 1 / float64(int64(1)<<(bitDepth-1))

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		mono[i] = float32(sum / float64(channels) * scale)
	}

	opts.SampleRate = float64(buf.Format.SampleRate)
	a, err := NewAnalyser(opts)
	if err != nil {
		return nil, err
	}

	applog.Infof("Signal: Loaded WAV (%d Hz, %d ch, %d-bit, %.2fs)",
		buf.Format.SampleRate, channels, bitDepth, float64(frames)/float64(buf.Format.SampleRate))

	return &WAVSource{
		Analyser:   a,
		samples:    mono,
		sampleRate: buf.Format.SampleRate,
	}, nil
}

// Advance moves the playhead by d, feeds the samples it passed over into the
// analyser and returns how many were written. The playhead is derived from
// the summed durations, so frame-sized steps do not drift against the audio.
// It returns 0 once the file is exhausted.
func (s *WAVSource) Advance(d time.Duration) int {
	if d <= 0 || s.Done() {
		return 0
	}
	s.clock += d
	target := int(s.clock.Seconds()*float64(s.sampleRate) + 0.5)
	end := min(target, len(s.samples))
	s.Write(s.samples[s.pos:end])
	written := end - s.pos
	s.pos = end
	return written
}

// Done reports whether every sample has been played.
func (s *WAVSource) Done() bool {
	return s.pos >= len(s.samples)
}

// Position returns the playhead as a duration from the start of the file.
func (s *WAVSource) Position() time.Duration {
	return s.toDuration(s.pos)
}

// Duration returns the length of the file.
func (s *WAVSource) Duration() time.Duration {
	return s.toDuration(len(s.samples))
}

func (s *WAVSource) toDuration(samples int) time.Duration {
	return time.Duration(float64(samples) / float64(s.sampleRate) * float64(time.Second))
}
