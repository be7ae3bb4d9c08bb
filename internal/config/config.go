// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the visualizer.
const (
	// Audio capture and analysis
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultChannels        = 1           // Mono capture
	DefaultFFTSize         = 2048        // Yields 1024 frequency bins
	DefaultSmoothing       = 0.8         // Spectrum temporal smoothing
	DefaultMinDecibels     = -100.0
	DefaultMaxDecibels     = -30.0
	DefaultGateThreshold   = 0.001 // Fraction of full scale

	// Beat detection
	DefaultBeatThreshold = 0.3
	DefaultMinInterval   = 300 * time.Millisecond
	DefaultPulseWindow   = 100 * time.Millisecond
	DefaultHistorySize   = 10
	DefaultMinBPM        = 60
	DefaultMaxBPM        = 200

	// Hand tracking
	DefaultHandSmoothing = 0.3
	DefaultMaxHands      = 2

	// Rendering
	DefaultWidth     = 1280
	DefaultHeight    = 720
	DefaultFrameRate = 60
	DefaultBarCount  = 64

	// Transport and metrics
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz
	DefaultMetricsAddress   = ":9464"

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MinFFTSize    = 32
	MaxFFTSize    = 32768
	MaxFrameRate  = 240
)

// Config represents the application configuration, loaded from YAML and
// then refined by environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable verbose logging.
	LogLevel  string          `yaml:"log_level"`         // "debug", "info", "warn", "error".
	Command   string          `yaml:"command,omitempty"` // One-off command ("list", "analyze").
	Args      []string        `yaml:"-"`                 // Positional arguments of Command.
	TUI       bool            `yaml:"tui"`               // Run the terminal monitor alongside the frame loop.
	Audio     AudioConfig     `yaml:"audio"`
	Beat      BeatConfig      `yaml:"beat"`
	Hands     HandsConfig     `yaml:"hands"`
	Render    RenderConfig    `yaml:"render"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds settings related to audio capture and the analyser.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device.
	InputChannels   int     `yaml:"input_channels"`    // Channels captured; downmixed to mono.
	FFTSize         int     `yaml:"fft_size"`          // Analyser FFT size (power of two).
	Smoothing       float64 `yaml:"smoothing"`         // Spectrum smoothing time constant (0-1).
	MinDecibels     float64 `yaml:"min_decibels"`      // Maps to byte 0.
	MaxDecibels     float64 `yaml:"max_decibels"`      // Maps to byte 255.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Noise gate, fraction of full scale (0 disables).
}

// BeatConfig tunes the energy beat detector.
type BeatConfig struct {
	Threshold   float64       `yaml:"threshold"`    // Mean squared amplitude above which a frame is loud.
	MinInterval time.Duration `yaml:"min_interval"` // Debounce between registered beats.
	PulseWindow time.Duration `yaml:"pulse_window"` // How long isBeat stays true after a beat.
	HistorySize int           `yaml:"history_size"` // Beat timestamps kept for the tempo estimate.
	MinBPM      int           `yaml:"min_bpm"`
	MaxBPM      int           `yaml:"max_bpm"`
}

// HandsConfig tunes hand position smoothing.
type HandsConfig struct {
	Smoothing float64 `yaml:"smoothing"` // Exponential smoothing factor applied to new samples.
	MaxHands  int     `yaml:"max_hands"` // Hands accepted from the pose collaborator.
}

// RenderConfig describes the drawing surface and frame cadence.
type RenderConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	FrameRate int `yaml:"frame_rate"` // Animation frames per second.
	BarCount  int `yaml:"bar_count"`  // Frequency bars drawn by the spectrum stage.
}

// RecordingConfig holds settings related to audio recording.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the captured input to WAV.
	OutputFile string `yaml:"output_file"` // Empty means recording-<timestamp>.wav.
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig holds settings related to publishing frame state.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	LogFrames        bool          `yaml:"log_frames"` // Log every frame at DEBUG.
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// NewConfig creates a Config populated with default values. This is the base
// that YAML files, environment variables and flags are applied on top of.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			FFTSize:         DefaultFFTSize,
			Smoothing:       DefaultSmoothing,
			MinDecibels:     DefaultMinDecibels,
			MaxDecibels:     DefaultMaxDecibels,
			GateThreshold:   DefaultGateThreshold,
		},
		Beat: BeatConfig{
			Threshold:   DefaultBeatThreshold,
			MinInterval: DefaultMinInterval,
			PulseWindow: DefaultPulseWindow,
			HistorySize: DefaultHistorySize,
			MinBPM:      DefaultMinBPM,
			MaxBPM:      DefaultMaxBPM,
		},
		Hands: HandsConfig{
			Smoothing: DefaultHandSmoothing,
			MaxHands:  DefaultMaxHands,
		},
		Render: RenderConfig{
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			FrameRate: DefaultFrameRate,
			BarCount:  DefaultBarCount,
		},
		Recording: RecordingConfig{
			BitDepth: 32,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
	}
}

// FrameInterval returns the duration of one animation frame.
func (c *Config) FrameInterval() time.Duration {
	if c.Render.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.Render.FrameRate)
}

// BinCount returns the length of the analyser buffers (half the FFT size).
func (c *Config) BinCount() int {
	return c.Audio.FFTSize / 2
}
