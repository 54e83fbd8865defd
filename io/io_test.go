package io

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf"
)

func writeTemp(t *testing.T, name, text string) string {
	t.Helper()
	fname := path.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fname, []byte(text), 0666))
	return fname
}

func TestReadRunConfig(t *testing.T) {
	fname := writeTemp(t, "run.config", `[Run]
NParts = 512
Theta = 0.7
Output = test_run
LogFile = test_run.log
Verbose = true`)

	con, err := ReadRunConfig(fname)
	require.NoError(t, err)

	assert.Equal(t, 512, con.NParts)
	assert.Equal(t, 0.7, con.Theta)
	assert.Equal(t, "test_run", con.Output)
	assert.Equal(t, "test_run.log", con.LogFile)
	assert.True(t, con.ValidLogFile())
	assert.True(t, con.Verbose)

	// Unset fields keep their defaults.
	assert.Equal(t, 0.01, con.Softening)
	assert.Equal(t, 1000, con.Steps)
	assert.Equal(t, int64(1234), con.Seed)

	require.NoError(t, con.CheckInit())
}

func TestExampleRunFileParses(t *testing.T) {
	fname := writeTemp(t, "example.config", ExampleRunFile)

	con, err := ReadRunConfig(fname)
	require.NoError(t, err)
	require.NoError(t, con.CheckInit())
	assert.Equal(t, 4096, con.NParts)
}

func TestCheckInit(t *testing.T) {
	table := []struct {
		name string
		mod  func(*RunConfig)
		ok   bool
	}{
		{"plummer run", func(c *RunConfig) { c.NParts = 100 }, true},
		{"input run", func(c *RunConfig) { c.Input = "ic.dat" }, true},
		{"no particles", func(c *RunConfig) {}, false},
		{"both sources", func(c *RunConfig) {
			c.NParts = 100
			c.Input = "ic.dat"
		}, false},
		{"no output", func(c *RunConfig) {
			c.NParts = 100
			c.Output = ""
		}, false},
		{"bad mass", func(c *RunConfig) {
			c.NParts = 100
			c.TotalMass = -1
		}, false},
	}

	for _, test := range table {
		con := DefaultRunWrapper().Run
		con.Output = "out"
		test.mod(&con)

		err := con.CheckInit()
		if test.ok && err != nil {
			t.Errorf("%s) unexpected error: %v", test.name, err)
		} else if !test.ok && err == nil {
			t.Errorf("%s) invalid config accepted", test.name)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := &behalf.Snapshot{
		Step: 40,
		Time: 0.4,
		Pos:  []r3.Vec{{X: 1.5, Y: -2, Z: 0.25}, {X: -3}},
		Vel:  []r3.Vec{{Y: 0.5}, {X: 1, Z: -1}},
	}

	fname := SnapshotPath(t.TempDir(), snap.Step)
	require.NoError(t, WriteSnapshot(fname, snap))

	got, err := ReadSnapshot(fname)
	require.NoError(t, err)

	assert.Equal(t, snap.Step, got.Step)
	assert.InDelta(t, snap.Time, got.Time, 1e-12)
	require.Equal(t, len(snap.Pos), len(got.Pos))
	for i := range snap.Pos {
		assert.InDelta(t, 0, r3.Norm(r3.Sub(snap.Pos[i], got.Pos[i])), 1e-6)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(snap.Vel[i], got.Vel[i])), 1e-6)
	}
}

func TestReadInitialConditions(t *testing.T) {
	fname := writeTemp(t, "ic.dat", `# test cluster
1 2 3  0.1 0.2 0.3  2.5
-1 0 4  0 0 0  1.5
`)

	s, err := ReadInitialConditions(fname)
	require.NoError(t, err)

	require.Equal(t, 2, s.N())
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, s.Pos[0])
	assert.Equal(t, r3.Vec{X: 0.1, Y: 0.2, Z: 0.3}, s.Vel[0])
	assert.Equal(t, 2.5, s.Mass[0])
	assert.Equal(t, 1.5, s.Mass[1])
}

func TestReadInitialConditionsRejectsBadTables(t *testing.T) {
	short := writeTemp(t, "short.dat", "1 2 3 4\n")
	_, err := ReadInitialConditions(short)
	assert.Error(t, err, "short row")

	badMass := writeTemp(t, "bad_mass.dat", "0 0 0 0 0 0 -1\n")
	_, err = ReadInitialConditions(badMass)
	assert.Error(t, err, "non-positive mass")

	empty := writeTemp(t, "empty.dat", "# nothing here\n")
	_, err = ReadInitialConditions(empty)
	assert.Error(t, err, "no particles")
}

func TestEnergyLog(t *testing.T) {
	fname := path.Join(t.TempDir(), "energy.dat")
	l, err := CreateEnergyLog(fname)
	require.NoError(t, err)

	require.NoError(t, l.Append(&behalf.Diagnostics{
		Step: 0, Time: 0, Kinetic: 1, Potential: -3,
		TreeDepth: 5, TreeNodes: 17,
	}))
	require.NoError(t, l.Append(&behalf.Diagnostics{
		Step: 10, Time: 0.1, Kinetic: 1.1, Potential: -3.1,
		TreeDepth: 5, TreeNodes: 17,
	}))
	require.NoError(t, l.Close())

	buf, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(buf), "# ")
	assert.Contains(t, string(buf), "10")
}

func TestManifestRoundTrip(t *testing.T) {
	con := &DefaultRunWrapper().Run
	con.NParts = 256
	con.Output = "out"

	m := NewManifest("test_run", con.NParts, con)
	fname := path.Join(t.TempDir(), "run.yaml")
	require.NoError(t, WriteManifest(fname, m))

	buf, err := os.ReadFile(fname)
	require.NoError(t, err)
	text := string(buf)
	assert.Contains(t, text, "run_name: test_run")
	assert.Contains(t, text, "n_parts: 256")
	assert.Contains(t, text, "theta: 0.5")
}
