// SPDX-License-Identifier: MIT
package visualizer

import (
	"fmt"

	"pulse/internal/analysis"
	"pulse/internal/animate"
	"pulse/internal/hands"
	"pulse/internal/transport"
	"pulse/internal/transport/udp"
)

// Frame is the message published to transports after every tick. Slices are
// shared between consumers and must be treated as read-only.
type Frame struct {
	Seq       uint64               `json:"seq"`
	Time      float64              `json:"time"` // Seconds since the loop started.
	BPM       int                  `json:"bpm"`
	Energy    float64              `json:"energy"`
	IsBeat    bool                 `json:"isBeat"`
	Beat      bool                 `json:"beat"` // A beat was registered on this frame.
	Hands     []hands.Point        `json:"hands"`
	Layers    []Layer              `json:"layers"`
	Particles int                  `json:"particles"`
	Bands     []analysis.BandLevel `json:"bands,omitempty"`
}

// Layer is one background layer as the page applies it.
type Layer struct {
	Background string  `json:"background"`
	Opacity    float64 `json:"opacity"`
	HandX      float64 `json:"handX"` // Percent of the viewport.
	HandY      float64 `json:"handY"`
}

func layersFrom(styles []animate.LayerStyle) []Layer {
	out := make([]Layer, len(styles))
	for i, s := range styles {
		out[i] = Layer{
			Background: s.CSS(),
			Opacity:    s.Opacity,
			HandX:      s.CenterX,
			HandY:      s.CenterY,
		}
	}
	return out
}

// Summary implements transport.Summarizer.
func (f Frame) Summary() string {
	return fmt.Sprintf("frame %d t=%.3fs bpm=%d energy=%.3f isBeat=%v beat=%v hands=%d particles=%d",
		f.Seq, f.Time, f.BPM, f.Energy, f.IsBeat, f.Beat, len(f.Hands), f.Particles)
}

// Snapshot converts the frame to the UDP packet payload.
func (f Frame) Snapshot() udp.Snapshot {
	return udp.Snapshot{
		BPM:        f.BPM,
		Energy:     f.Energy,
		IsBeat:     f.IsBeat,
		Registered: f.Beat,
		Hands:      f.Hands,
	}
}

var _ transport.Summarizer = Frame{}
