// SPDX-License-Identifier: MIT
package animate

import (
	"math"
	"math/rand/v2"

	"pulse/internal/hands"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	baseParticles = 50
	attractRadius = 200.0
	attractGain   = 0.1
	beatGrowth    = 1.2
	beatLife      = 0.1
	velocityDecay = 0.98
	sizeDecay     = 0.99
	lifeDecay     = 0.995
	minSize       = 0.5
)

// Particle is one simulated point.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Size   float64
	Life   float64 // 0..1, drawn as alpha.
	Color  colorful.Color
}

// ParticleSystem keeps a population sized from the tempo, pulled toward
// hands and pulsed on beats.
type ParticleSystem struct {
	canvas    Canvas
	rng       *rand.Rand
	particles []Particle
}

// NewParticleSystem draws onto canvas. rng seeds spawning; nil uses a
// randomly seeded source.
func NewParticleSystem(canvas Canvas, rng *rand.Rand) *ParticleSystem {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ParticleSystem{canvas: canvas, rng: rng}
}

// TargetCount is the population for a tempo: floor(50 + bpm/4).
func TargetCount(bpm int) int {
	return baseParticles + max(bpm, 0)/4
}

// Update resizes the population and steps every particle once.
func (p *ParticleSystem) Update(s State) {
	w, h := p.canvas.Size()
	p.resize(TargetCount(s.BPM), w, h)

	speed := 1 + float64(s.BPM)/fullTurnBPM
	for i := range p.particles {
		pt := &p.particles[i]

		attract(pt, s.Hands)

		if s.IsBeat {
			pt.Size *= beatGrowth
			pt.Life = math.Min(pt.Life+beatLife, 1)
		}

		pt.X = wrap(pt.X+pt.VX*speed, w)
		pt.Y = wrap(pt.Y+pt.VY*speed, h)

		pt.VX *= velocityDecay
		pt.VY *= velocityDecay
		pt.Size *= sizeDecay
		pt.Life *= lifeDecay

		if pt.Size < minSize || !finite(pt.VX) || !finite(pt.VY) {
			p.respawn(pt)
		}
	}
}

// Render clears the canvas and draws every particle at alpha = life.
func (p *ParticleSystem) Render() {
	p.canvas.Clear()
	for _, pt := range p.particles {
		p.canvas.FillCircle(pt.X, pt.Y, pt.Size, pt.Color, pt.Life)
	}
}

// Len returns the current population.
func (p *ParticleSystem) Len() int {
	return len(p.particles)
}

// Particles returns a copy of the population, oldest first.
func (p *ParticleSystem) Particles() []Particle {
	out := make([]Particle, len(p.particles))
	copy(out, p.particles)
	return out
}

// resize appends new particles or drops the oldest ones from the front.
func (p *ParticleSystem) resize(target int, w, h float64) {
	if n := len(p.particles); n > target {
		copy(p.particles, p.particles[n-target:])
		p.particles = p.particles[:target]
		return
	}
	for len(p.particles) < target {
		p.particles = append(p.particles, p.spawn(w, h))
	}
}

func (p *ParticleSystem) spawn(w, h float64) Particle {
	return Particle{
		X:     p.rng.Float64() * math.Max(w, 0),
		Y:     p.rng.Float64() * math.Max(h, 0),
		VX:    (p.rng.Float64() - 0.5) * 2,
		VY:    (p.rng.Float64() - 0.5) * 2,
		Size:  p.rng.Float64()*3 + 1,
		Life:  1,
		Color: ParticleColors[p.rng.IntN(len(ParticleColors))],
	}
}

// respawn resets size and life in place. A non-finite velocity is also reset
// so one bad input cannot poison the particle for good.
func (p *ParticleSystem) respawn(pt *Particle) {
	pt.Size = p.rng.Float64()*3 + 1
	pt.Life = 1
	if !finite(pt.VX) || !finite(pt.VY) {
		pt.VX = (p.rng.Float64() - 0.5) * 2
		pt.VY = (p.rng.Float64() - 0.5) * 2
	}
}

// attract adds a pull toward every hand within attractRadius. The pull
// weakens linearly to zero at the radius.
func attract(pt *Particle, pts []hands.Point) {
	for _, hp := range pts {
		dx := hp.X - pt.X
		dy := hp.Y - pt.Y
		d := math.Hypot(dx, dy)
		if d == 0 || d >= attractRadius || !finite(d) {
			continue
		}
		force := (attractRadius - d) / attractRadius * attractGain
		pt.VX += dx / d * force
		pt.VY += dy / d * force
	}
}

// wrap maps v into [0,extent). Non-finite values land on 0.
func wrap(v, extent float64) float64 {
	if extent <= 0 || !finite(v) {
		return 0
	}
	v = math.Mod(v, extent)
	if v < 0 {
		v += extent
	}
	if v >= extent {
		// -tiny + extent rounds up to extent.
		v = 0
	}
	return v
}
