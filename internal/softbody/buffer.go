package softbody

import "gonum.org/v1/gonum/spatial/r3"

// Generation selects one of the two particle arrays.
type Generation uint8

const (
	GenerationA Generation = 0
	GenerationB Generation = 1
)

// Other returns the opposite generation.
func (g Generation) Other() Generation { return g ^ 1 }

type generation struct {
	pos []r3.Vec
	vel []r3.Vec
}

// ParticleBuffer is ping-pong storage for positions and velocities. Kernels
// read the current generation through a ReadView and write the alternate one
// through a WriteView; Swap flips which one is current.
type ParticleBuffer struct {
	gens    [2]generation
	current Generation
}

// NewParticleBuffer starts both generations at positions with zero velocity.
func NewParticleBuffer(positions []r3.Vec) *ParticleBuffer {
	b := &ParticleBuffer{}
	for g := range b.gens {
		b.gens[g] = generation{
			pos: make([]r3.Vec, len(positions)),
			vel: make([]r3.Vec, len(positions)),
		}
	}
	b.Reset(positions, nil)
	return b
}

func (b *ParticleBuffer) Len() int { return len(b.gens[0].pos) }

func (b *ParticleBuffer) Current() Generation   { return b.current }
func (b *ParticleBuffer) Alternate() Generation { return b.current.Other() }

// Read returns a read-only view of generation g.
func (b *ParticleBuffer) Read(g Generation) ReadView {
	return ReadView{pos: b.gens[g].pos, vel: b.gens[g].vel}
}

// WriteAlternate returns the write view of the generation that is not current.
func (b *ParticleBuffer) WriteAlternate() WriteView {
	g := b.current.Other()
	return WriteView{pos: b.gens[g].pos, vel: b.gens[g].vel}
}

// Swap makes the alternate generation current. Called once per substep,
// after both kernels have finished.
func (b *ParticleBuffer) Swap() { b.current = b.current.Other() }

// Reset loads positions and velocities into both generations. A nil
// velocities slice means zero velocity.
func (b *ParticleBuffer) Reset(positions, velocities []r3.Vec) {
	for g := range b.gens {
		copy(b.gens[g].pos, positions)
		if velocities == nil {
			clear(b.gens[g].vel)
		} else {
			copy(b.gens[g].vel, velocities)
		}
	}
	b.current = GenerationA
}

// Positions copies the current positions into dst, growing it if needed.
func (b *ParticleBuffer) Positions(dst []r3.Vec) []r3.Vec {
	return copyInto(dst, b.gens[b.current].pos)
}

// Velocities copies the current velocities into dst, growing it if needed.
func (b *ParticleBuffer) Velocities(dst []r3.Vec) []r3.Vec {
	return copyInto(dst, b.gens[b.current].vel)
}

func copyInto(dst, src []r3.Vec) []r3.Vec {
	if cap(dst) < len(src) {
		dst = make([]r3.Vec, len(src))
	}
	dst = dst[:len(src)]
	copy(dst, src)
	return dst
}

// ReadView exposes one generation without setters.
type ReadView struct {
	pos []r3.Vec
	vel []r3.Vec
}

func (v ReadView) Len() int              { return len(v.pos) }
func (v ReadView) Position(i int) r3.Vec { return v.pos[i] }
func (v ReadView) Velocity(i int) r3.Vec { return v.vel[i] }

// WriteView is the destination of a substep.
type WriteView struct {
	pos []r3.Vec
	vel []r3.Vec
}

func (v WriteView) SetPosition(i int, p r3.Vec) { v.pos[i] = p }
func (v WriteView) SetVelocity(i int, u r3.Vec) { v.vel[i] = u }

// Velocity returns the velocity written earlier in the same substep; the
// position kernel advances with it.
func (v WriteView) Velocity(i int) r3.Vec { return v.vel[i] }
