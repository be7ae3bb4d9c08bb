// SPDX-License-Identifier: MIT
package animate

import "github.com/lucasb-eyer/go-colorful"

// Gradient is a two-stop colour pair.
type Gradient struct {
	Start colorful.Color
	End   colorful.Color
}

// Band is the palette used while the tempo is at or above MinBPM and below
// the next band.
type Band struct {
	Name      string
	MinBPM    int
	Gradients []Gradient
}

// Bands are ordered by MinBPM.
var Bands = []Band{
	{"cool-blue", 0, gradients("#667eea", "#764ba2", "#4facfe", "#00f2fe", "#89f7fe", "#66a6ff")},
	{"warm-orange", 80, gradients("#f093fb", "#f5576c", "#fa709a", "#fee140", "#ff9a9e", "#fecfef")},
	{"vibrant-red", 120, gradients("#ff6b6b", "#ee5a6f", "#ff8a80", "#ff5252", "#ff1744", "#d50000")},
	{"purple-pink", 160, gradients("#a855f7", "#ec4899", "#f472b6", "#db2777", "#e879f9", "#c026d3")},
}

// ParticleColors is the particle palette.
var ParticleColors = hexColors(
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#f9ca24", "#f0932b",
	"#eb4d4b", "#6c5ce7", "#a29bfe", "#fd79a8", "#fdcb6e",
)

// BandFor returns the palette band for a tempo.
func BandFor(bpm int) Band {
	band := Bands[0]
	for _, b := range Bands[1:] {
		if bpm < b.MinBPM {
			break
		}
		band = b
	}
	return band
}

func gradients(hex ...string) []Gradient {
	cs := hexColors(hex...)
	out := make([]Gradient, 0, len(cs)/2)
	for i := 0; i+1 < len(cs); i += 2 {
		out = append(out, Gradient{Start: cs[i], End: cs[i+1]})
	}
	return out
}

func hexColors(hex ...string) []colorful.Color {
	out := make([]colorful.Color, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}
