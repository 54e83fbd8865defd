/*package parallel partitions force evaluation across workers.

One tree build per step is serialized into a tree.FlatTree and handed to
every worker, so each worker can traverse the entire tree regardless of
which particles it was assigned. Workers evaluate disjoint particle
subsets and their results are gathered back into particle-index order
before integration. A worker is a CPU goroutine, a device kernel, or
anything else satisfying the Worker contract.
*/
package parallel

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/body"
	"github.com/ofenerci/behalf/tree"
)

// Worker evaluates accelerations for a subset of particles against a
// serialized tree snapshot. The returned slice is parallel to ids.
// Evaluate must not mutate the snapshot or the system.
type Worker interface {
	Name() string
	Evaluate(ft *tree.FlatTree, s *body.System, ids []int) ([]r3.Vec, error)
}

// CPUWorker traverses the tree snapshot on the host.
type CPUWorker struct {
	Grav tree.Gravity
	id   int
}

func (w *CPUWorker) Name() string { return fmt.Sprintf("cpu-%d", w.id) }

func (w *CPUWorker) Evaluate(
	ft *tree.FlatTree, s *body.System, ids []int,
) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(ids))
	for k, id := range ids {
		out[k] = ft.Accel(s.Pos, s.Mass, id, &w.Grav)
	}
	return out, nil
}

// Pool coordinates a fixed set of workers for the evaluation phase of
// each step.
type Pool struct {
	workers []Worker
}

// NewPool returns a pool over the given workers. At least one worker is
// required.
func NewPool(workers ...Worker) (*Pool, error) {
	if len(workers) == 0 {
		return nil, fmt.Errorf("A pool needs at least one worker.")
	}
	return &Pool{workers: workers}, nil
}

// NewCPUPool returns a pool of n host workers sharing the same force
// parameters.
func NewCPUPool(n int, grav *tree.Gravity) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("Worker count must be positive, got %d.", n)
	}
	workers := make([]Worker, n)
	for i := range workers {
		workers[i] = &CPUWorker{Grav: *grav, id: i}
	}
	return NewPool(workers...)
}

// Workers returns how many workers the pool dispatches to.
func (p *Pool) Workers() int { return len(p.workers) }

// Accelerations evaluates the acceleration of every particle in s
// against the already-built tree t. The tree is flattened once and
// replicated to all workers; the particle range is split evenly across
// them. The call blocks until every worker has returned, and any worker
// error aborts the whole evaluation: a step never proceeds with partial
// results.
func (p *Pool) Accelerations(t *tree.Tree, s *body.System) ([]r3.Vec, error) {
	ft := t.Flatten()
	parts := Split(s.N(), len(p.workers))
	acc := make([]r3.Vec, s.N())

	var group errgroup.Group
	for wi := range p.workers {
		w, ids := p.workers[wi], parts[wi]
		group.Go(func() error {
			out, err := w.Evaluate(ft, s, ids)
			if err != nil {
				return fmt.Errorf("Worker %s failed: %v", w.Name(), err)
			}
			if len(out) != len(ids) {
				return fmt.Errorf(
					"Worker %s returned %d accelerations for %d particles.",
					w.Name(), len(out), len(ids),
				)
			}
			// Workers own disjoint index sets, so these writes never
			// overlap.
			for k, id := range ids {
				acc[id] = out[k]
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return acc, nil
}

// Split partitions the indices [0, n) into k contiguous chunks whose
// sizes differ by at most one, the first n % k chunks being the larger
// ones. Chunks may be empty when k > n.
func Split(n, k int) [][]int {
	parts := make([][]int, k)
	base, extra := n/k, n%k

	start := 0
	for i := range parts {
		size := base
		if i < extra {
			size++
		}
		ids := make([]int, size)
		for j := range ids {
			ids[j] = start + j
		}
		parts[i] = ids
		start += size
	}
	return parts
}
