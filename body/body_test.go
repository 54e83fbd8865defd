package body

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestValidate(t *testing.T) {
	s := NewSystem(4)
	for i := range s.Mass {
		s.Mass[i] = 1
	}
	require.NoError(t, s.Validate())

	s.Mass[2] = 0
	assert.Error(t, s.Validate(), "zero mass")
	s.Mass[2] = -1
	assert.Error(t, s.Validate(), "negative mass")

	empty := NewSystem(0)
	assert.Error(t, empty.Validate(), "empty system")
}

func TestRecenter(t *testing.T) {
	s := NewSystem(3)
	s.Pos = []r3.Vec{{X: 1}, {X: 3}, {Y: -6}}
	s.Vel = []r3.Vec{{Z: 2}, {Z: -1}, {X: 4}}
	s.Mass = []float64{1, 2, 3}

	s.Recenter()

	com := s.CenterOfMass()
	mv := s.MeanVelocity()
	assert.InDelta(t, 0, r3.Norm(com), 1e-14)
	assert.InDelta(t, 0, r3.Norm(mv), 1e-14)
}

func TestKinetic(t *testing.T) {
	s := NewSystem(2)
	s.Mass = []float64{2, 3}
	s.Vel = []r3.Vec{{X: 1}, {Y: 2}}

	// 2*1/2 + 3*4/2
	assert.InDelta(t, 7, s.Kinetic(), 1e-14)
}

func TestPlummer(t *testing.T) {
	n := 2000
	a, mTot, g := 10.0, 1e5, 4.483e-3

	s := Plummer(n, a, mTot, g, 1234)
	require.NoError(t, s.Validate())
	require.Equal(t, n, s.N())

	assert.InDelta(t, mTot, s.TotalMass(), mTot*1e-12, "total mass")
	assert.InDelta(t, 0, r3.Norm(s.CenterOfMass()), 1e-9, "center of mass")
	assert.InDelta(t, 0, r3.Norm(s.MeanVelocity()), 1e-9, "mean velocity")

	// Half of the mass should lie within the analytic half-mass radius,
	// r_h = a / sqrt(2^(2/3) - 1) ~ 1.305 a. Use a loose statistical
	// tolerance.
	rh := a / math.Sqrt(math.Pow(2, 2.0/3.0)-1)
	inside := 0
	for i := range s.Pos {
		if r3.Norm(s.Pos[i]) < rh {
			inside++
		}
	}
	frac := float64(inside) / float64(n)
	assert.InDelta(t, 0.5, frac, 0.05, "half-mass fraction")

	// Virial equilibrium: 2K + W ~ 0. The Plummer potential energy is
	// W = -3 pi G M^2 / (32 a).
	w := -3 * math.Pi * g * mTot * mTot / (32 * a)
	virial := (2*s.Kinetic() + w) / math.Abs(w)
	assert.InDelta(t, 0, virial, 0.1, "virial ratio")
}

func TestPlummerDeterministic(t *testing.T) {
	s1 := Plummer(100, 10, 1e5, 4.483e-3, 77)
	s2 := Plummer(100, 10, 1e5, 4.483e-3, 77)

	for i := range s1.Pos {
		if s1.Pos[i] != s2.Pos[i] || s1.Vel[i] != s2.Vel[i] {
			t.Fatalf("particle %d differs between identically seeded runs", i)
		}
	}
}
