// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "pulse/internal/log"
)

// LoggingTransport logs each message at DEBUG. It is used when no network
// transport is enabled and for local inspection with --verbose.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs a summary of data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	if s, ok := data.(Summarizer); ok {
		applog.Debugf("Transport: #%d %s", n, s.Summary())
	} else {
		applog.Debugf("Transport: #%d %T %+v", n, data, data)
	}
	return nil
}

// Sent returns the number of messages passed to Send.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed after %d messages", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
