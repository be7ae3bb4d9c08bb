// SPDX-License-Identifier: MIT

// Package transport publishes frame messages to outside consumers and feeds
// hand detections from them back into the frame loop.
package transport

import (
	"errors"

	"pulse/internal/hands"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport delivers messages produced by the frame loop. Send must not
// block: implementations drop messages they cannot deliver in time.
// Implementations are safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// HandSink receives hand detections as landmarks normalized to [0,1] of the
// camera frame.
type HandSink interface {
	PublishNormalized(points []hands.Point)
}

// Summarizer is implemented by messages that have a short log form.
type Summarizer interface {
	Summary() string
}

var _ HandSink = (*hands.Feed)(nil)
