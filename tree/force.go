package tree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Gravity bundles the parameters of a softened force evaluation. Theta
// is the opening angle of the Barnes-Hut acceptance test: a node of
// width s at distance d is approximated as a point mass when s/d <
// Theta. Theta == 0 never accepts an internal node, so every traversal
// reaches the leaves and the result equals exact direct summation. Eps
// is the Plummer softening length.
type Gravity struct {
	G     float64
	Theta float64
	Eps   float64
}

// Accel returns the approximate gravitational acceleration on particle
// i from every other particle, computed by traversing the tree under
// grav's opening-angle criterion. The traversal only reads the tree and
// the particle arrays, so concurrent calls for different particles are
// safe. Particle i's own leaf contributes nothing, detected by index
// rather than by distance.
func (t *Tree) Accel(pos []r3.Vec, mass []float64, i int, grav *Gravity) r3.Vec {
	return t.accel(0, pos, mass, int32(i), grav)
}

func (t *Tree) accel(
	ni int32, pos []r3.Vec, mass []float64, pi int32, grav *Gravity,
) r3.Vec {
	nd := &t.Nodes[ni]
	if nd.Count == 0 {
		return r3.Vec{}
	}

	if nd.Leaf() {
		if nd.PIdx == pi {
			// Self-interaction.
			return r3.Vec{}
		}
		if nd.PIdx >= 0 {
			return pointAccel(&pos[pi], &nd.COM, nd.Mass, grav)
		}
		// Depth-capped leaf holding coincident particles: accumulate
		// per member so the target can still be excluded by identity.
		a := r3.Vec{}
		for _, pj := range t.merged[ni] {
			if pj == pi {
				continue
			}
			a = r3.Add(a, pointAccel(&pos[pi], &pos[pj], mass[pj], grav))
		}
		return a
	}

	// A node enclosing the target must be opened no matter how wide the
	// opening angle is, or its point-mass approximation would fold the
	// target's own mass into the force.
	if !nd.Cube.Contains(&pos[pi]) {
		delta := r3.Sub(nd.COM, pos[pi])
		d := r3.Norm(delta)
		if d > 0 && nd.Cube.Width()/d < grav.Theta {
			return pointAccel(&pos[pi], &nd.COM, nd.Mass, grav)
		}
	}

	a := r3.Vec{}
	for _, ci := range nd.Children {
		if ci == noChild {
			continue
		}
		a = r3.Add(a, t.accel(ci, pos, mass, pi, grav))
	}
	return a
}

// pointAccel returns the softened acceleration at p due to mass m at q:
// G m (q - p) / (|q - p|^2 + eps^2)^(3/2).
func pointAccel(p, q *r3.Vec, m float64, grav *Gravity) r3.Vec {
	delta := r3.Sub(*q, *p)
	d2 := r3.Norm2(delta) + grav.Eps*grav.Eps
	return r3.Scale(grav.G*m/(d2*math.Sqrt(d2)), delta)
}

// DirectAccel returns the exact O(N) direct-summation acceleration on
// particle i, with the same softening as the tree traversal. It exists
// as the reference the approximation is checked against.
func DirectAccel(pos []r3.Vec, mass []float64, i int, grav *Gravity) r3.Vec {
	a := r3.Vec{}
	for j := range pos {
		if j == i {
			continue
		}
		a = r3.Add(a, pointAccel(&pos[i], &pos[j], mass[j], grav))
	}
	return a
}

// Potential returns the tree-approximated gravitational potential
// energy of particle i, -G m_i m_j / sqrt(|dr|^2 + eps^2) summed over
// accepted nodes. Summing Potential over all particles double counts
// each pair, so the system potential is half the sum.
func (t *Tree) Potential(pos []r3.Vec, mass []float64, i int, grav *Gravity) float64 {
	return t.potential(0, pos, mass, int32(i), grav)
}

func (t *Tree) potential(
	ni int32, pos []r3.Vec, mass []float64, pi int32, grav *Gravity,
) float64 {
	nd := &t.Nodes[ni]
	if nd.Count == 0 {
		return 0
	}

	if nd.Leaf() {
		if nd.PIdx == pi {
			return 0
		}
		if nd.PIdx >= 0 {
			return pairPotential(&pos[pi], &nd.COM, mass[pi], nd.Mass, grav)
		}
		phi := 0.0
		for _, pj := range t.merged[ni] {
			if pj == pi {
				continue
			}
			phi += pairPotential(&pos[pi], &pos[pj], mass[pi], mass[pj], grav)
		}
		return phi
	}

	if !nd.Cube.Contains(&pos[pi]) {
		delta := r3.Sub(nd.COM, pos[pi])
		d := r3.Norm(delta)
		if d > 0 && nd.Cube.Width()/d < grav.Theta {
			return pairPotential(&pos[pi], &nd.COM, mass[pi], nd.Mass, grav)
		}
	}

	phi := 0.0
	for _, ci := range nd.Children {
		if ci == noChild {
			continue
		}
		phi += t.potential(ci, pos, mass, pi, grav)
	}
	return phi
}

func pairPotential(p, q *r3.Vec, mp, mq float64, grav *Gravity) float64 {
	d2 := r3.Norm2(r3.Sub(*q, *p)) + grav.Eps*grav.Eps
	return -grav.G * mp * mq / math.Sqrt(d2)
}

// DirectPotential returns the exact total potential energy of the
// system by pairwise summation.
func DirectPotential(pos []r3.Vec, mass []float64, grav *Gravity) float64 {
	phi := 0.0
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			phi += pairPotential(&pos[i], &pos[j], mass[i], mass[j], grav)
		}
	}
	return phi
}
