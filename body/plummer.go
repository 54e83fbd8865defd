package body

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plummer samples n equal-mass particles from a Plummer sphere with
// total mass mTot and scale radius a, in virial equilibrium for the
// gravitational constant g. Sampling uses the standard inverse-transform
// for radii and von Neumann rejection for speeds (Aarseth, Henon &
// Wielen 1974). The same seed always produces the same system. The
// returned system is shifted so its center of mass and mean velocity
// are zero.
func Plummer(n int, a, mTot, g float64, seed int64) *System {
	gen := rand.New(rand.NewSource(seed))
	s := NewSystem(n)

	m := mTot / float64(n)

	for i := 0; i < n; i++ {
		s.Mass[i] = m

		// Radius from the inverted cumulative mass profile. The mass
		// fraction is kept away from 1 to avoid arbitrarily distant
		// outliers in small samples.
		u := gen.Float64()
		for u == 0 || u > 0.999 {
			u = gen.Float64()
		}
		r := a / math.Sqrt(math.Pow(u, -2.0/3.0)-1)
		s.Pos[i] = r3.Scale(r, isotropic(gen))

		// Speed as a fraction q of the local escape speed, with
		// q^2 (1 - q^2)^(7/2) rejection sampling.
		q := 0.0
		for {
			q = gen.Float64()
			y := gen.Float64() * 0.1
			if y < q*q*math.Pow(1-q*q, 3.5) {
				break
			}
		}
		vEsc := math.Sqrt(2*g*mTot) / math.Pow(r*r+a*a, 0.25)
		s.Vel[i] = r3.Scale(q*vEsc, isotropic(gen))
	}

	s.Recenter()
	return s
}

// isotropic returns a unit vector drawn uniformly from the sphere.
func isotropic(gen *rand.Rand) r3.Vec {
	z := gen.Float64()*2 - 1
	phi := gen.Float64() * 2 * math.Pi
	rxy := math.Sqrt(1 - z*z)
	return r3.Vec{X: rxy * math.Cos(phi), Y: rxy * math.Sin(phi), Z: z}
}
