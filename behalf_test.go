package behalf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/body"
	"github.com/ofenerci/behalf/geom"
	"github.com/ofenerci/behalf/tree"
)

func smallCluster(n int) *body.System {
	return body.Plummer(n, 10.0, 1e5, GravConst, 1234)
}

func testConfig(steps int) Config {
	cfg := DefaultConfig()
	cfg.Steps = steps
	cfg.SaveEvery = 5
	cfg.Workers = 2
	return cfg
}

func TestConfigValidation(t *testing.T) {
	sys := smallCluster(8)

	table := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero theta", func(c *Config) { c.Theta = 0 }},
		{"negative theta", func(c *Config) { c.Theta = -0.5 }},
		{"zero softening", func(c *Config) { c.Eps = 0 }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"zero steps", func(c *Config) { c.Steps = 0 }},
		{"zero save cadence", func(c *Config) { c.SaveEvery = 0 }},
		{"negative G", func(c *Config) { c.G = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"degenerate bounds", func(c *Config) {
			c.Bounds = &geom.Cube{}
		}},
	}

	for _, test := range table {
		cfg := testConfig(10)
		test.mod(&cfg)
		if _, err := New(cfg, sys); err == nil {
			t.Errorf("%s) config accepted", test.name)
		}
	}
}

func TestRejectsInvalidSystem(t *testing.T) {
	cfg := testConfig(10)

	_, err := New(cfg, body.NewSystem(0))
	assert.Error(t, err, "empty system")

	sys := smallCluster(4)
	sys.Mass[1] = -2
	_, err = New(cfg, sys)
	assert.Error(t, err, "negative mass")
}

func TestSnapshotCadence(t *testing.T) {
	sys := smallCluster(32)
	sim, err := New(testConfig(12), sys)
	require.NoError(t, err)

	steps := []int{}
	sim.OnSnapshot(func(snap *Snapshot) error {
		steps = append(steps, snap.Step)
		require.Equal(t, sys.N(), len(snap.Pos))
		require.Equal(t, sys.N(), len(snap.Vel))
		return nil
	})

	require.NoError(t, sim.Run())

	// SaveEvery = 5 over 12 steps: boundaries after steps 0, 5, 10, and
	// always the final step.
	assert.Equal(t, []int{0, 5, 10, 11}, steps)
}

func TestSnapshotIsACopy(t *testing.T) {
	sys := smallCluster(16)
	sim, err := New(testConfig(6), sys)
	require.NoError(t, err)

	var first *Snapshot
	sim.OnSnapshot(func(snap *Snapshot) error {
		if first == nil {
			first = snap
		}
		return nil
	})
	require.NoError(t, sim.Run())

	// The system has moved on; the first snapshot must not have.
	moved := false
	for i := range first.Pos {
		if first.Pos[i] != sys.Pos[i] {
			moved = true
		}
	}
	assert.True(t, moved, "snapshot aliases the live particle store")
}

func TestEnergyBoundedOverRun(t *testing.T) {
	sys := smallCluster(64)
	cfg := testConfig(100)
	cfg.SaveEvery = 10

	sim, err := New(cfg, sys)
	require.NoError(t, err)

	energies := []float64{}
	sim.OnDiagnostics(func(d *Diagnostics) {
		energies = append(energies, d.Kinetic+d.Potential)
	})

	require.NoError(t, sim.Run())
	require.True(t, len(energies) >= 2)

	e0 := energies[0]
	for i, e := range energies {
		drift := math.Abs((e - e0) / e0)
		assert.True(t, drift < 0.02,
			"boundary %d) relative energy drift %g", i, drift)
	}
}

func TestDiagnosticsShape(t *testing.T) {
	sys := smallCluster(32)
	sim, err := New(testConfig(5), sys)
	require.NoError(t, err)

	var last *Diagnostics
	sim.OnDiagnostics(func(d *Diagnostics) { last = d })
	require.NoError(t, sim.Run())

	require.NotNil(t, last)
	assert.Equal(t, 4, last.Step)
	assert.True(t, last.TreeDepth > 0)
	assert.True(t, last.TreeNodes >= sys.N())
	assert.True(t, last.Kinetic > 0)
	assert.True(t, last.Potential < 0)
}

func TestEscapeFromFixedBoundsIsFatal(t *testing.T) {
	sys := body.NewSystem(2)
	sys.Mass[0], sys.Mass[1] = 1, 1
	sys.Pos[0], sys.Pos[1] = r3.Vec{X: -1}, r3.Vec{X: 1}
	// Fast enough to leave the cube within a few steps.
	sys.Vel[1] = r3.Vec{X: 100}

	cfg := testConfig(1000)
	cfg.Bounds = &geom.Cube{HalfWidth: 2}

	sim, err := New(cfg, sys)
	require.NoError(t, err)
	assert.Error(t, sim.Run(), "escaping a fixed bounding cube must abort")
}

func TestAutoBoundsFollowExpansion(t *testing.T) {
	// The same escaping system with recomputed bounds must run fine.
	sys := body.NewSystem(2)
	sys.Mass[0], sys.Mass[1] = 1, 1
	sys.Pos[0], sys.Pos[1] = r3.Vec{X: -1}, r3.Vec{X: 1}
	sys.Vel[1] = r3.Vec{X: 100}

	cfg := testConfig(50)
	sim, err := New(cfg, sys)
	require.NoError(t, err)
	assert.NoError(t, sim.Run())
}

func TestWorkerCountDoesNotChangeTrajectory(t *testing.T) {
	run := func(workers int) *body.System {
		sys := smallCluster(48)
		cfg := testConfig(10)
		cfg.Workers = workers
		sim, err := New(cfg, sys)
		require.NoError(t, err)
		require.NoError(t, sim.Run())
		return sys
	}

	s1, s4 := run(1), run(4)
	for i := range s1.Pos {
		if s1.Pos[i] != s4.Pos[i] || s1.Vel[i] != s4.Vel[i] {
			t.Fatalf("particle %d diverged between 1 and 4 workers", i)
		}
	}
}

func TestZeroGDefaultsToGravConst(t *testing.T) {
	// G = 0 selects GravConst, and the default has to reach the workers
	// too: they capture G when the pool is built, so a stale zero there
	// would silently turn gravity off.
	sys := body.NewSystem(2)
	sys.Mass[0], sys.Mass[1] = 1, 1
	sys.Pos[0], sys.Pos[1] = r3.Vec{X: -0.5}, r3.Vec{X: 0.5}

	cfg := testConfig(1)
	cfg.G = 0
	sim, err := New(cfg, sys)
	require.NoError(t, err)

	acc, err := sim.accelerations(sys)
	require.NoError(t, err)

	grav := &tree.Gravity{G: GravConst, Theta: cfg.Theta, Eps: cfg.Eps}
	for i := range acc {
		want := tree.DirectAccel(sys.Pos, sys.Mass, i, grav)
		require.True(t, r3.Norm(acc[i]) > 0, "particle %d) zero acceleration", i)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(acc[i], want)),
			1e-12*r3.Norm(want), "particle %d", i)
	}
}

func TestTreeAgreesWithDirectSummation(t *testing.T) {
	// End-to-end cross-check at the driver level: one evaluation phase
	// against brute force on a small cluster.
	sys := smallCluster(10)
	cfg := testConfig(1)
	sim, err := New(cfg, sys)
	require.NoError(t, err)

	acc, err := sim.accelerations(sys)
	require.NoError(t, err)

	grav := &tree.Gravity{G: cfg.G, Theta: cfg.Theta, Eps: cfg.Eps}
	for i := range acc {
		want := tree.DirectAccel(sys.Pos, sys.Mass, i, grav)
		rel := r3.Norm(r3.Sub(acc[i], want)) / r3.Norm(want)
		assert.True(t, rel < 0.05, "particle %d) relative error %g", i, rel)
	}
}
