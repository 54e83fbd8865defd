/*package io reads run configuration files and writes the on-disk
artifacts of a run: particle snapshots, the energy diagnostics table,
and the run manifest.
*/
package io

import (
	"fmt"

	"gopkg.in/gcfg.v1"

	"github.com/ofenerci/behalf"
)

// RunConfig is the [Run] section of a configuration file. Zero values
// select the documented defaults where a default exists; NParts and
// Output have no default and must be set (unless Input supplies the
// particles).
type RunConfig struct {
	// Initial conditions: either a Plummer sphere...
	NParts    int
	TotalMass float64 // 1e9 Msun
	Radius    float64 // scale radius, kpc
	Seed      int64
	// ...or a particle table read from disk.
	Input string

	// Simulation parameters.
	Theta     float64
	Softening float64 // kpc
	Dt        float64 // Myr
	Steps     int
	SaveEvery int
	G         float64
	Workers   int
	MaxDepth  int

	// Output handling.
	Output  string
	LogFile string
	Clobber bool
	Verbose bool
}

type RunWrapper struct {
	Run RunConfig
}

// DefaultRunWrapper returns a wrapper preloaded with the default run
// parameters, ready for gcfg to overwrite.
func DefaultRunWrapper() *RunWrapper {
	return &RunWrapper{
		Run: RunConfig{
			TotalMass: 1e5,
			Radius:    10,
			Seed:      1234,
			Theta:     0.5,
			Softening: 0.01,
			Dt:        0.01,
			Steps:     1000,
			SaveEvery: 10,
			G:         behalf.GravConst,
		},
	}
}

// ReadRunConfig parses fname into a RunConfig with defaults applied.
func ReadRunConfig(fname string) (*RunConfig, error) {
	wrap := DefaultRunWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	return &wrap.Run, nil
}

func (con *RunConfig) ValidInput() bool { return con.Input != "" }

func (con *RunConfig) ValidNParts() bool { return con.NParts > 0 }

func (con *RunConfig) ValidOutput() bool { return con.Output != "" }

func (con *RunConfig) ValidLogFile() bool { return con.LogFile != "" }

// CheckInit validates everything the io layer is responsible for:
// particle sourcing and output destination. The physics parameters are
// validated by behalf.New.
func (con *RunConfig) CheckInit() error {
	if !con.ValidInput() && !con.ValidNParts() {
		return fmt.Errorf(
			"Need either a positive 'NParts' or an 'Input' particle table.",
		)
	}
	if con.ValidInput() && con.ValidNParts() {
		return fmt.Errorf("'NParts' and 'Input' cannot both be set.")
	}
	if !con.ValidOutput() {
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	}
	if !con.ValidInput() {
		if con.TotalMass <= 0 {
			return fmt.Errorf(
				"'TotalMass' must be positive, got %g.", con.TotalMass,
			)
		}
		if con.Radius <= 0 {
			return fmt.Errorf("'Radius' must be positive, got %g.", con.Radius)
		}
	}
	return nil
}

// Config maps the file-level parameters onto the simulation config.
func (con *RunConfig) Config() behalf.Config {
	return behalf.Config{
		Theta:     con.Theta,
		Eps:       con.Softening,
		Dt:        con.Dt,
		Steps:     con.Steps,
		SaveEvery: con.SaveEvery,
		G:         con.G,
		Workers:   con.Workers,
		MaxDepth:  con.MaxDepth,
		Verbose:   con.Verbose,
	}
}

// ExampleRunFile documents every [Run] field with its default.
const ExampleRunFile = `[Run]

# Plummer-sphere initial conditions.
NParts    = 4096
# Total mass in 1e9 Msun.
TotalMass = 1e5
# Scale radius in kpc.
Radius    = 10
Seed      = 1234

# Alternatively, read particles from a table of
# "x y z vx vy vz mass" rows instead:
# Input = my_cluster.dat

# Barnes-Hut opening angle.
Theta     = 0.5
# Softening length in kpc.
Softening = 0.01
# Time step in Myr.
Dt        = 0.01
Steps     = 1000
SaveEvery = 10

# 0 means one worker per CPU.
Workers   = 0

Output    = my_run
Clobber   = false
Verbose   = true

# Redirect progress logging to a file instead of stderr:
# LogFile = my_run.log`
