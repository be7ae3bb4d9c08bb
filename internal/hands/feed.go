// SPDX-License-Identifier: MIT
package hands

import "sync"

// Feed is a single-slot mailbox between the pose estimator, which publishes
// detections at its own cadence, and the frame loop, which polls for the
// latest one without blocking. Older detections are overwritten.
type Feed struct {
	mu       sync.Mutex
	points   []Point
	seq      uint64
	maxHands int
	width    float64
	height   float64
}

// NewFeed creates a Feed that keeps at most maxHands points (0 means no
// limit) and scales normalized landmarks to a width x height viewport.
func NewFeed(maxHands int, width, height float64) *Feed {
	return &Feed{
		maxHands: maxHands,
		width:    width,
		height:   height,
	}
}

// Publish stores a detection in pixel coordinates.
func (f *Feed) Publish(points []Point) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.maxHands > 0 && len(points) > f.maxHands {
		points = points[:f.maxHands]
	}
	f.points = append(f.points[:0], points...)
	f.seq++
}

// PublishNormalized stores a detection given as landmarks normalized to
// [0,1] of the camera frame, scaling them to the viewport.
func (f *Feed) PublishNormalized(points []Point) {
	scaled := make([]Point, len(points))
	for i, p := range points {
		scaled[i] = Point{X: p.X * f.width, Y: p.Y * f.height}
	}
	f.Publish(scaled)
}

// Poll returns the latest detection if it is newer than lastSeq. ok is false
// when nothing new has been published since lastSeq.
func (f *Feed) Poll(lastSeq uint64) (points []Point, seq uint64, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seq == lastSeq {
		return nil, lastSeq, false
	}
	out := make([]Point, len(f.points))
	copy(out, f.points)
	return out, f.seq, true
}
