//go:build !cuda

package parallel

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/body"
	"github.com/ofenerci/behalf/tree"
)

// CUDAWorker offloads tree traversal to a CUDA device. Built without
// the cuda tag it reports unavailable and evaluates on the host, so a
// pool configured with a device worker still runs everywhere.
type CUDAWorker struct {
	Grav tree.Gravity
}

func NewCUDAWorker(grav *tree.Gravity) *CUDAWorker {
	return &CUDAWorker{Grav: *grav}
}

func (w *CUDAWorker) Name() string { return "cuda (not available)" }

// Available reports whether a device is present.
func (w *CUDAWorker) Available() bool { return false }

func (w *CUDAWorker) Evaluate(
	ft *tree.FlatTree, s *body.System, ids []int,
) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(ids))
	for k, id := range ids {
		out[k] = ft.Accel(s.Pos, s.Mass, id, &w.Grav)
	}
	return out, nil
}
