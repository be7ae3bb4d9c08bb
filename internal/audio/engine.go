// SPDX-License-Identifier: MIT
/*
Package audio captures microphone input through PortAudio and feeds it to the
analyser that the frame loop polls.

Thread Safety:
  - The capture callback owns every buffer; nothing is allocated per callback
  - Recording state is switched with atomics
  - The OS thread is locked while a callback runs
*/
package audio

import (
	"math"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"pulse/internal/config"
	applog "pulse/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// SampleWriter receives mono samples in [-1,1]. *signal.Analyser satisfies
// it.
type SampleWriter interface {
	Write(samples []float32)
}

type Engine struct {
	cfg  *config.Config
	sink SampleWriter

	// Audio input handling.
	channels     int
	frames       int
	inputBuffer  []int32
	mono         []float32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Noise gate.
	gateEnabled   bool
	gateThreshold int32 // Absolute amplitude threshold (0-2147483647)
	gated         atomic.Uint64
	passed        atomic.Uint64

	// Recording state and buffers.
	isRecording int32
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
	sampleShift uint
}

// NewEngine resolves the configured input device and prepares buffers. The
// stream is not opened until StartInputStream.
func NewEngine(cfg *config.Config, sink SampleWriter) (*Engine, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	e := newEngine(cfg, sink)
	e.inputDevice = device
	if cfg.Audio.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}

	applog.Infof("Audio: Using input device %q (%d ch @ %.0f Hz, %d frames, latency %s)",
		device.Name, e.channels, cfg.Audio.SampleRate, e.frames, e.inputLatency)
	return e, nil
}

func newEngine(cfg *config.Config, sink SampleWriter) *Engine {
	channels := max(cfg.Audio.InputChannels, 1)
	frames := max(cfg.Audio.FramesPerBuffer, 1)

	e := &Engine{
		cfg:         cfg,
		sink:        sink,
		channels:    channels,
		frames:      frames,
		inputBuffer: make([]int32, frames*channels),
		mono:        make([]float32, frames),
	}
	e.SetGateThreshold(cfg.Audio.GateThreshold)
	e.gateEnabled = cfg.Audio.GateThreshold > 0
	return e
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.frames,
		SampleRate:      e.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}

	applog.Infof("Audio: Input stream started")
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil

	applog.Infof("Audio: Input stream stopped (%d buffers analysed, %d gated)", e.passed.Load(), e.gated.Load())
	return nil
}

// processInputStream is the PortAudio callback. It must not allocate.
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer[:n])

	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		e.record(e.inputBuffer[:n])
	}
}

// processBuffer gates an interleaved buffer, downmixes it to mono in [-1,1]
// and writes it to the sink. It reports whether the buffer reached the sink.
func (e *Engine) processBuffer(buffer []int32) bool {
	if e.gateEnabled && peakAmplitude(buffer) <= e.gateThreshold {
		e.gated.Add(1)
		return false
	}

	frames := len(buffer) / e.channels
	scale := 1 / (float64(math.MaxInt32) * float64(e.channels))
	for i := range frames {
		var sum int64
		for c := range e.channels {
			sum += int64(buffer[i*e.channels+c])
		}
		e.mono[i] = float32(float64(sum) * scale)
	}

	if e.sink != nil {
		e.sink.Write(e.mono[:frames])
	}
	e.passed.Add(1)
	return true
}

// record converts captured samples to the recording bit depth and appends
// them to the WAV file.
func (e *Engine) record(buffer []int32) {
	data := e.sampleBuf.Data[:len(buffer)]
	for i, sample := range buffer {
		data[i] = int(sample >> e.sampleShift)
	}
	e.sampleBuf.Data = data

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Audio: Error writing to WAV file: %v", err)
	}
}
