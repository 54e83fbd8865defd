/*package integrate advances particle systems in time with the leapfrog
scheme in its kick-drift-kick form. Leapfrog is symplectic: the
discretized energy stays bounded over long integrations instead of
drifting the way forward Euler does.
*/
package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/body"
)

// AccelFunc recomputes the acceleration of every particle at the
// system's current positions, in particle-index order.
type AccelFunc func(s *body.System) ([]r3.Vec, error)

// HalfKick advances every velocity by dt/2 using the accelerations
// currently stored in the system.
func HalfKick(s *body.System, dt float64) {
	for i := range s.Vel {
		s.Vel[i] = r3.Add(s.Vel[i], r3.Scale(dt/2, s.Acc[i]))
	}
}

// Drift advances every position by dt using the current velocities.
func Drift(s *body.System, dt float64) {
	for i := range s.Pos {
		s.Pos[i] = r3.Add(s.Pos[i], r3.Scale(dt, s.Vel[i]))
	}
}

// Step advances the system by one kick-drift-kick step of size dt. The
// phases run in fixed order: half-kick with the stored accelerations,
// drift, recompute accelerations at the new positions, final half-kick.
// Step requires s.Acc to hold accelerations for the current positions
// on entry and guarantees the same on exit, so consecutive calls chain
// without recomputing forces twice.
//
// If recompute fails the system is left mid-step and must not be used
// further; the error is returned unchanged.
func Step(s *body.System, dt float64, recompute AccelFunc) error {
	if dt <= 0 {
		return fmt.Errorf("Time step must be positive, got %g.", dt)
	}

	HalfKick(s, dt)
	Drift(s, dt)

	acc, err := recompute(s)
	if err != nil {
		return err
	}
	if len(acc) != s.N() {
		return fmt.Errorf(
			"Got %d accelerations for %d particles.", len(acc), s.N(),
		)
	}
	copy(s.Acc, acc)

	HalfKick(s, dt)
	return nil
}
