/*package behalf evolves self-gravitating N-body systems with the
Barnes-Hut approximation.

Each step rebuilds an octree over the current particle positions,
evaluates softened accelerations by opening-angle traversal across a
pool of workers, and advances the system with a kick-drift-kick
leapfrog. The tree is shared read-only during evaluation and the
particle store is mutated only between evaluations, so the phases never
race.
*/
package behalf

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/body"
	"github.com/ofenerci/behalf/geom"
	"github.com/ofenerci/behalf/integrate"
	"github.com/ofenerci/behalf/parallel"
	"github.com/ofenerci/behalf/tree"
)

// GravConst is Newton's constant in the simulation unit system:
// lengths in kpc, times in Myr, masses in 1e9 Msun.
const GravConst = 4.483e-3

// Config collects the run parameters of a simulation.
type Config struct {
	// Theta is the Barnes-Hut opening angle. Smaller is more accurate
	// and slower.
	Theta float64
	// Eps is the Plummer softening length, in kpc.
	Eps float64
	// Dt is the fixed time step, in Myr.
	Dt float64
	// Steps is the number of time steps to run.
	Steps int
	// SaveEvery is the snapshot cadence in steps. The final step is
	// always reported.
	SaveEvery int
	// G is the gravitational constant. Zero selects GravConst.
	G float64
	// Workers is the number of CPU evaluation workers. Zero selects
	// runtime.NumCPU(). Ignored when a pool is supplied directly.
	Workers int
	// MaxDepth caps octree subdivision. Zero selects
	// tree.DefaultMaxDepth.
	MaxDepth int
	// Bounds optionally fixes the global bounding cube for the whole
	// run. A particle escaping it aborts the run. When nil, the cube is
	// recomputed from the particle positions before every build.
	Bounds *geom.Cube
	// Verbose enables per-iteration progress logging.
	Verbose bool
}

// DefaultConfig returns the standard run parameters: Theta = 0.5,
// Eps = 0.01 kpc, Dt = 0.01 Myr, 1000 steps, snapshots every 10.
func DefaultConfig() Config {
	return Config{
		Theta:     0.5,
		Eps:       0.01,
		Dt:        0.01,
		Steps:     1000,
		SaveEvery: 10,
		G:         GravConst,
	}
}

func (cfg *Config) check() error {
	if cfg.Theta <= 0 {
		return fmt.Errorf("Opening angle must be positive, got %g.", cfg.Theta)
	}
	if cfg.Eps <= 0 {
		return fmt.Errorf("Softening length must be positive, got %g.", cfg.Eps)
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("Time step must be positive, got %g.", cfg.Dt)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("Step count must be positive, got %d.", cfg.Steps)
	}
	if cfg.SaveEvery <= 0 {
		return fmt.Errorf("SaveEvery must be positive, got %d.", cfg.SaveEvery)
	}
	if cfg.G <= 0 {
		return fmt.Errorf("Gravitational constant must be positive, got %g.", cfg.G)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("Worker count cannot be negative, got %d.", cfg.Workers)
	}
	if cfg.Bounds != nil && cfg.Bounds.HalfWidth <= 0 {
		return fmt.Errorf("Fixed bounding cube must have positive width.")
	}
	return nil
}

// Snapshot is the particle state exposed at a step boundary. The slices
// are copies: the caller may keep them across steps.
type Snapshot struct {
	Step int
	Time float64
	Pos  []r3.Vec
	Vel  []r3.Vec
}

// SnapshotFunc consumes a snapshot. Returning an error aborts the run.
type SnapshotFunc func(*Snapshot) error

// Diagnostics carries optional per-step scalars for verbose or
// analysis-oriented callers. Energies use the tree-approximated
// potential at the configured opening angle.
type Diagnostics struct {
	Step      int
	Time      float64
	Kinetic   float64
	Potential float64
	TreeDepth int
	TreeNodes int
	Merges    int
	Elapsed   time.Duration
}

// DiagFunc consumes per-boundary diagnostics.
type DiagFunc func(*Diagnostics)

// Simulation owns the time loop of one run.
type Simulation struct {
	cfg  Config
	grav tree.Gravity

	sys  *body.System
	tr   *tree.Tree
	pool *parallel.Pool

	step    int
	started time.Time

	onSnapshot SnapshotFunc
	onDiag     DiagFunc
}

// New validates the configuration and the initial particle state and
// returns a simulation backed by a pool of CPU workers.
func New(cfg Config, sys *body.System) (*Simulation, error) {
	// The workers capture G at construction, so the default must be
	// applied before the pool is built, not just in NewWithPool.
	if cfg.G == 0 {
		cfg.G = GravConst
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	grav := tree.Gravity{G: cfg.G, Theta: cfg.Theta, Eps: cfg.Eps}
	pool, err := parallel.NewCPUPool(workers, &grav)
	if err != nil {
		return nil, err
	}
	return NewWithPool(cfg, sys, pool)
}

// NewWithPool is New with a caller-supplied worker pool, for runs that
// mix CPU and device workers.
func NewWithPool(
	cfg Config, sys *body.System, pool *parallel.Pool,
) (*Simulation, error) {
	if cfg.G == 0 {
		cfg.G = GravConst
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}

	return &Simulation{
		cfg:  cfg,
		grav: tree.Gravity{G: cfg.G, Theta: cfg.Theta, Eps: cfg.Eps},
		sys:  sys,
		tr:   tree.New(cfg.MaxDepth),
		pool: pool,
	}, nil
}

// OnSnapshot registers the snapshot consumer.
func (sim *Simulation) OnSnapshot(fn SnapshotFunc) { sim.onSnapshot = fn }

// OnDiagnostics registers the diagnostics consumer.
func (sim *Simulation) OnDiagnostics(fn DiagFunc) { sim.onDiag = fn }

// System returns the live particle store. Callers must not mutate it
// while a run is in progress.
func (sim *Simulation) System() *body.System { return sim.sys }

// StepCount returns how many steps have completed.
func (sim *Simulation) StepCount() int { return sim.step }

// Time returns the current simulation time.
func (sim *Simulation) Time() float64 { return float64(sim.step) * sim.cfg.Dt }

// Run executes the configured number of steps, reporting snapshots and
// diagnostics on SaveEvery boundaries and after the final step. Any
// error is fatal to the run: no partial step state survives.
func (sim *Simulation) Run() error {
	sim.started = time.Now()

	// Self-start: the first half-kick of the first step needs
	// accelerations at the initial positions.
	acc, err := sim.accelerations(sim.sys)
	if err != nil {
		return err
	}
	copy(sim.sys.Acc, acc)

	if sim.cfg.Verbose {
		log.Printf(
			"Starting integration loop: N = %d, steps = %d, workers = %d",
			sim.sys.N(), sim.cfg.Steps, sim.pool.Workers(),
		)
	}

	for i := 0; i < sim.cfg.Steps; i++ {
		if err := sim.Step(); err != nil {
			return fmt.Errorf("Step %d: %v", i, err)
		}

		if sim.cfg.Verbose {
			log.Printf(
				"Iteration %d complete. %.1f seconds elapsed.",
				i, time.Since(sim.started).Seconds(),
			)
		}

		if i%sim.cfg.SaveEvery == 0 || i == sim.cfg.Steps-1 {
			if err := sim.report(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Step advances the system by one kick-drift-kick step. The caller is
// responsible for priming accelerations before the first Step; Run does
// this automatically.
func (sim *Simulation) Step() error {
	err := integrate.Step(sim.sys, sim.cfg.Dt, sim.accelerations)
	if err != nil {
		return err
	}
	sim.step++
	return nil
}

// accelerations runs the build + evaluate phase at the system's current
// positions: recompute (or reuse) the bounding cube, rebuild the tree,
// fan evaluation out across the pool, and gather into index order.
func (sim *Simulation) accelerations(s *body.System) ([]r3.Vec, error) {
	cube := sim.bounds(s)
	if err := sim.tr.Build(s.Pos, s.Mass, cube); err != nil {
		return nil, err
	}

	acc, err := sim.pool.Accelerations(sim.tr, s)
	if err != nil {
		return nil, err
	}

	if err := checkFinite(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (sim *Simulation) bounds(s *body.System) geom.Cube {
	if sim.cfg.Bounds != nil {
		return *sim.cfg.Bounds
	}
	return geom.Bounding(s.Pos)
}

// report delivers the snapshot and diagnostics for the just-completed
// step.
func (sim *Simulation) report() error {
	if sim.onSnapshot != nil {
		pos, vel := sim.sys.CopyState()
		snap := &Snapshot{
			Step: sim.step - 1,
			Time: sim.Time(),
			Pos:  pos,
			Vel:  vel,
		}
		if err := sim.onSnapshot(snap); err != nil {
			return fmt.Errorf("Snapshot at step %d: %v", snap.Step, err)
		}
	}

	if sim.onDiag != nil {
		sim.onDiag(sim.diagnostics())
	}
	return nil
}

// diagnostics summarizes the current state. The potential reuses the
// step's tree, which Step left built at the current positions.
func (sim *Simulation) diagnostics() *Diagnostics {
	pe := 0.0
	for i := 0; i < sim.sys.N(); i++ {
		pe += sim.tr.Potential(sim.sys.Pos, sim.sys.Mass, i, &sim.grav)
	}
	pe /= 2

	return &Diagnostics{
		Step:      sim.step - 1,
		Time:      sim.Time(),
		Kinetic:   sim.sys.Kinetic(),
		Potential: pe,
		TreeDepth: sim.tr.Depth(),
		TreeNodes: sim.tr.Len(),
		Merges:    sim.tr.Merges(),
		Elapsed:   time.Since(sim.started),
	}
}

// checkFinite rejects NaN or Inf accelerations. These cannot occur with
// a positive softening length, so one slipping through is an invariant
// violation rather than a value to clamp.
func checkFinite(acc []r3.Vec) error {
	for i := range acc {
		for _, x := range []float64{acc[i].X, acc[i].Y, acc[i].Z} {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf(
					"Non-finite acceleration for particle %d: (%g, %g, %g).",
					i, acc[i].X, acc[i].Y, acc[i].Z,
				)
			}
		}
	}
	return nil
}
