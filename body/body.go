/*package body stores the state of an N-body particle system: positions,
velocities, masses, and the accelerations computed for the current step.

The particle count is fixed for the lifetime of a System. Particles are
identified by their index, which is stable across the whole run.
*/
package body

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// System is a flat collection of particle state. The i'th element of
// every slice belongs to particle i.
type System struct {
	Pos  []r3.Vec
	Vel  []r3.Vec
	Acc  []r3.Vec
	Mass []float64
}

// NewSystem returns a zeroed System holding n particles.
func NewSystem(n int) *System {
	return &System{
		Pos:  make([]r3.Vec, n),
		Vel:  make([]r3.Vec, n),
		Acc:  make([]r3.Vec, n),
		Mass: make([]float64, n),
	}
}

// N returns the number of particles in the system.
func (s *System) N() int { return len(s.Pos) }

// Validate checks the structural invariants a System must satisfy before
// it can be evolved: at least one particle, consistent slice lengths, and
// strictly positive masses.
func (s *System) Validate() error {
	n := s.N()
	if n == 0 {
		return fmt.Errorf("System contains no particles.")
	}
	if len(s.Vel) != n || len(s.Acc) != n || len(s.Mass) != n {
		return fmt.Errorf(
			"System slice lengths disagree: %d positions, %d velocities, "+
				"%d accelerations, %d masses.",
			n, len(s.Vel), len(s.Acc), len(s.Mass),
		)
	}
	for i, m := range s.Mass {
		if m <= 0 {
			return fmt.Errorf("Particle %d has non-positive mass %g.", i, m)
		}
	}
	return nil
}

// TotalMass returns the sum of all particle masses.
func (s *System) TotalMass() float64 {
	return floats.Sum(s.Mass)
}

// CenterOfMass returns the mass-weighted mean position.
func (s *System) CenterOfMass() r3.Vec {
	com := r3.Vec{}
	for i := range s.Pos {
		com = r3.Add(com, r3.Scale(s.Mass[i], s.Pos[i]))
	}
	return r3.Scale(1/s.TotalMass(), com)
}

// MeanVelocity returns the mass-weighted mean velocity.
func (s *System) MeanVelocity() r3.Vec {
	mean := r3.Vec{}
	for i := range s.Vel {
		mean = r3.Add(mean, r3.Scale(s.Mass[i], s.Vel[i]))
	}
	return r3.Scale(1/s.TotalMass(), mean)
}

// Recenter shifts the system so its center of mass sits at the origin
// and its mean velocity is zero.
func (s *System) Recenter() {
	com := s.CenterOfMass()
	mv := s.MeanVelocity()
	for i := range s.Pos {
		s.Pos[i] = r3.Sub(s.Pos[i], com)
		s.Vel[i] = r3.Sub(s.Vel[i], mv)
	}
}

// Kinetic returns the total kinetic energy, sum of m v^2 / 2.
func (s *System) Kinetic() float64 {
	ke := 0.0
	for i := range s.Vel {
		ke += s.Mass[i] * r3.Norm2(s.Vel[i]) / 2
	}
	return ke
}

// CopyState copies the current positions and velocities into freshly
// allocated slices, for snapshotting at a step boundary.
func (s *System) CopyState() (pos, vel []r3.Vec) {
	pos = make([]r3.Vec, s.N())
	vel = make([]r3.Vec, s.N())
	copy(pos, s.Pos)
	copy(vel, s.Vel)
	return pos, vel
}
