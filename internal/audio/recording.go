// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	applog "pulse/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrAlreadyRecording = errors.New("already recording")

// DefaultRecordingName returns recording-DD-MM-YYYY-HHMMSS.wav for t in UTC.
func DefaultRecordingName(t time.Time) string {
	return "recording-" + t.UTC().Format("02-01-2006-150405") + ".wav"
}

// StartRecording writes every captured buffer, gated or not, to filename at
// the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return ErrAlreadyRecording
	}

	bitDepth := e.cfg.Recording.BitDepth
	switch bitDepth {
	case 16, 24, 32:
	default:
		bitDepth = 32
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	e.outputFile = file

	sampleRate := int(e.cfg.Audio.SampleRate)
	e.wavEncoder = wav.NewEncoder(file, sampleRate, bitDepth, e.channels, 1)
	e.sampleShift = uint(32 - bitDepth)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, e.frames*e.channels),
		SourceBitDepth: bitDepth,
	}

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("Audio: Recording to %s (%d-bit, %d ch)", filename, bitDepth, e.channels)
	return nil
}

func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}
	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return fmt.Errorf("finalize recording: %w", err)
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		name := e.outputFile.Name()
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
		applog.Infof("Audio: Recording saved to %s", name)
	}

	return nil
}

// Recording reports whether captured audio is being written to disk.
func (e *Engine) Recording() bool {
	return atomic.LoadInt32(&e.isRecording) == 1
}

func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	return e.StopInputStream()
}
