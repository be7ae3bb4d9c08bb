// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestRecordingRoundTrip(t *testing.T) {
	tests := []struct {
		bitDepth int
		sample   int32
		want     int
	}{
		{16, 1 << 20, 1 << 4},
		{24, -1 << 20, -1 << 12},
		{32, 1 << 20, 1 << 20},
	}

	for _, tt := range tests {
		t.Run(formatFloat(float64(tt.bitDepth)), func(t *testing.T) {
			e := newTestEngine(2, 0, newCaptureSink(testFrameSize))
			e.cfg.Recording.BitDepth = tt.bitDepth
			path := filepath.Join(t.TempDir(), "capture.wav")

			if err := e.StartRecording(path); err != nil {
				t.Fatalf("StartRecording: %v", err)
			}
			if !e.Recording() {
				t.Fatal("Recording() = false after StartRecording")
			}

			in := make([]int32, testFrameSize*2)
			for i := range in {
				in[i] = tt.sample
			}
			for range 3 {
				e.processInputStream(in)
			}
			if err := e.StopRecording(); err != nil {
				t.Fatalf("StopRecording: %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			d := wav.NewDecoder(f)
			buf, err := d.FullPCMBuffer()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if int(d.BitDepth) != tt.bitDepth || buf.Format.NumChannels != 2 || buf.Format.SampleRate != testSampleRate {
				t.Errorf("format = %d-bit %d ch %d Hz", d.BitDepth, buf.Format.NumChannels, buf.Format.SampleRate)
			}
			if len(buf.Data) != 3*testFrameSize*2 {
				t.Fatalf("decoded %d samples, want %d", len(buf.Data), 3*testFrameSize*2)
			}
			for i, v := range buf.Data {
				if v != tt.want {
					t.Fatalf("sample %d = %d, want %d", i, v, tt.want)
				}
			}
		})
	}
}

func TestRecordingKeepsGatedAudio(t *testing.T) {
	sink := newCaptureSink(testFrameSize)
	e := newTestEngine(2, 0.5, sink)
	path := filepath.Join(t.TempDir(), "gated.wav")

	if err := e.StartRecording(path); err != nil {
		t.Fatal(err)
	}
	e.processInputStream(quietBuffer)
	if err := e.StopRecording(); err != nil {
		t.Fatal(err)
	}

	if sink.writes != 0 {
		t.Error("quiet buffer should not reach the analyser")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= 44 {
		t.Errorf("recording has no audio data (%d bytes)", info.Size())
	}
}

func TestRecordingErrorCases(t *testing.T) {
	t.Run("already recording", func(t *testing.T) {
		e := newTestEngine(1, 0, nil)
		path := filepath.Join(t.TempDir(), "a.wav")
		if err := e.StartRecording(path); err != nil {
			t.Fatal(err)
		}
		defer e.StopRecording()

		if err := e.StartRecording(path); !errors.Is(err, ErrAlreadyRecording) {
			t.Errorf("err = %v, want ErrAlreadyRecording", err)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		e := newTestEngine(1, 0, nil)
		if err := e.StartRecording("/nonexistent/path/file.wav"); err == nil {
			t.Error("expected error")
		}
		if e.Recording() {
			t.Error("failed start left the engine recording")
		}
	})

	t.Run("stop when not recording", func(t *testing.T) {
		e := newTestEngine(1, 0, nil)
		if err := e.StopRecording(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCloseEngineWithRecording(t *testing.T) {
	e := newTestEngine(2, 0, nil)
	if err := e.StartRecording(filepath.Join(t.TempDir(), "close.wav")); err != nil {
		t.Fatal(err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if e.Recording() || e.outputFile != nil || e.wavEncoder != nil {
		t.Error("Close left recording state behind")
	}
}

func TestDefaultRecordingName(t *testing.T) {
	ts := time.Date(2025, 4, 13, 9, 5, 7, 0, time.UTC)
	if got, want := DefaultRecordingName(ts), "recording-13-04-2025-090507.wav"; got != want {
		t.Errorf("DefaultRecordingName() = %q, want %q", got, want)
	}
}

func BenchmarkRecordingStartStop(b *testing.B) {
	e := newTestEngine(2, 0, nil)
	path := filepath.Join(b.TempDir(), "bench.wav")

	b.ReportAllocs()
	for b.Loop() {
		_ = e.StartRecording(path)
		_ = e.StopRecording()
	}
}
