// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "pulse/internal/log"
	"pulse/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Validation errors. Validate wraps these with the offending value.
var (
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidFFTSize    = errors.New("invalid fft size")
	ErrInvalidDecibels   = errors.New("invalid decibel range")
	ErrInvalidSmoothing  = errors.New("invalid smoothing constant")
	ErrInvalidBeat       = errors.New("invalid beat settings")
	ErrInvalidHands      = errors.New("invalid hand settings")
	ErrInvalidRender     = errors.New("invalid render settings")
	ErrInvalidTransport  = errors.New("invalid transport settings")
)

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, it looks for "config.yaml" in the working directory and falls back to
// built-in defaults when none exists. Environment overrides are applied after
// the file and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks ranges that would otherwise surface as NaN or panics deep in
// the frame loop.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: %.0f Hz (want %d-%d)", ErrInvalidSampleRate, c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FFTSize) || c.Audio.FFTSize < MinFFTSize || c.Audio.FFTSize > MaxFFTSize {
		return fmt.Errorf("%w: %d (want power of two in %d-%d)", ErrInvalidFFTSize, c.Audio.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if c.Audio.MinDecibels >= c.Audio.MaxDecibels {
		return fmt.Errorf("%w: min %.1f >= max %.1f", ErrInvalidDecibels, c.Audio.MinDecibels, c.Audio.MaxDecibels)
	}
	if c.Audio.Smoothing < 0 || c.Audio.Smoothing >= 1 {
		return fmt.Errorf("%w: %.2f (want [0,1))", ErrInvalidSmoothing, c.Audio.Smoothing)
	}

	if c.Beat.Threshold <= 0 || c.Beat.MinInterval <= 0 || c.Beat.PulseWindow <= 0 {
		return fmt.Errorf("%w: threshold, min_interval and pulse_window must be positive", ErrInvalidBeat)
	}
	if c.Beat.HistorySize < 2 {
		return fmt.Errorf("%w: history_size %d (want >= 2)", ErrInvalidBeat, c.Beat.HistorySize)
	}
	if c.Beat.MinBPM <= 0 || c.Beat.MinBPM > c.Beat.MaxBPM {
		return fmt.Errorf("%w: bpm range [%d,%d]", ErrInvalidBeat, c.Beat.MinBPM, c.Beat.MaxBPM)
	}

	if c.Hands.Smoothing <= 0 || c.Hands.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing %.2f (want (0,1])", ErrInvalidHands, c.Hands.Smoothing)
	}
	if c.Hands.MaxHands < 0 {
		return fmt.Errorf("%w: max_hands %d", ErrInvalidHands, c.Hands.MaxHands)
	}

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidRender, c.Render.Width, c.Render.Height)
	}
	if c.Render.FrameRate <= 0 || c.Render.FrameRate > MaxFrameRate {
		return fmt.Errorf("%w: frame_rate %d (want 1-%d)", ErrInvalidRender, c.Render.FrameRate, MaxFrameRate)
	}
	if c.Render.BarCount <= 0 {
		return fmt.Errorf("%w: bar_count %d", ErrInvalidRender, c.Render.BarCount)
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: udp_target_address %q appears invalid (missing port?)", ErrInvalidTransport, c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: udp_send_interval must be positive", ErrInvalidTransport)
		}
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return fmt.Errorf("%w: websocket_address must be set", ErrInvalidTransport)
	}

	return nil
}

// applyEnvOverrides applies ENV_* variables on top of file values. Malformed
// values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			applog.Infof("Config: Overriding debug from env: %v", b)
		} else {
			applog.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_FRAME_RATE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Render.FrameRate = n
			applog.Infof("Config: Overriding render.frame_rate from env: %d", n)
		} else {
			applog.Warnf("Config: Ignoring ENV_FRAME_RATE=%q: %v", val, err)
		}
	}

	// ENV_WS_{...} and ENV_UDP_{...} are specific to the transport layer.
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Infof("Config: Overriding transport.websocket_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Infof("Config: Overriding transport.udp_enabled from env: %v", b)
		} else {
			applog.Warnf("Config: Ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			applog.Infof("Config: Overriding transport.udp_send_interval from env: %s", d)
		} else {
			applog.Warnf("Config: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

// ApplyLogLevel pushes LogLevel (or Debug) into the global logger.
func (c *Config) ApplyLogLevel() {
	if c.Debug {
		applog.SetLevel(applog.LevelDebug)
		return
	}
	level, ok := applog.ParseLevel(c.LogLevel)
	if !ok {
		applog.Warnf("Config: Unknown log_level %q, using %s", c.LogLevel, level)
	}
	applog.SetLevel(level)
}
