//go:build cuda

package parallel

/*
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lbhkernels -lstdc++
#include <stdlib.h>

extern int bh_device_count();
extern void bh_tree_accel(
	const float* com, const float* center, const float* node_mass,
	const float* width, const int* children, const int* pidx, int n_nodes,
	const float* pos, const float* mass, const int* targets, int n_targets,
	float theta, float g, float eps, float* accel);
*/
import "C"

import (
	"fmt"
	"unsafe"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/body"
	"github.com/ofenerci/behalf/tree"
)

// CUDAWorker offloads tree traversal to a CUDA device. The flattened
// tree snapshot is copied to the device once per Evaluate call together
// with the particle batch; the kernel walks the node records iteratively
// with the same opening-angle test as tree.FlatTree.Accel. Depth-capped
// merged leaves are approximated by their aggregate mass, which is exact
// for the coincident particles that produce them.
type CUDAWorker struct {
	Grav tree.Gravity

	available bool
}

func NewCUDAWorker(grav *tree.Gravity) *CUDAWorker {
	return &CUDAWorker{
		Grav:      *grav,
		available: int(C.bh_device_count()) > 0,
	}
}

func (w *CUDAWorker) Name() string { return "cuda" }

// Available reports whether a device is present.
func (w *CUDAWorker) Available() bool { return w.available }

func (w *CUDAWorker) Evaluate(
	ft *tree.FlatTree, s *body.System, ids []int,
) ([]r3.Vec, error) {
	if !w.available {
		return nil, fmt.Errorf("No CUDA device present.")
	}
	if len(ids) == 0 {
		return []r3.Vec{}, nil
	}

	nNodes := ft.Len()

	com := make([]C.float, 3*nNodes)
	center := make([]C.float, 3*nNodes)
	nodeMass := make([]C.float, nNodes)
	width := make([]C.float, nNodes)
	children := make([]C.int, 8*nNodes)
	pidx := make([]C.int, nNodes)

	for i := 0; i < nNodes; i++ {
		com[3*i] = C.float(ft.COM[i].X)
		com[3*i+1] = C.float(ft.COM[i].Y)
		com[3*i+2] = C.float(ft.COM[i].Z)
		center[3*i] = C.float(ft.Center[i].X)
		center[3*i+1] = C.float(ft.Center[i].Y)
		center[3*i+2] = C.float(ft.Center[i].Z)
		nodeMass[i] = C.float(ft.Mass[i])
		width[i] = C.float(ft.Width[i])
		pidx[i] = C.int(ft.PIdx[i])
		for j := 0; j < 8; j++ {
			children[8*i+j] = C.int(ft.Children[i][j])
		}
	}

	pos := make([]C.float, 3*s.N())
	mass := make([]C.float, s.N())
	for i := 0; i < s.N(); i++ {
		pos[3*i] = C.float(s.Pos[i].X)
		pos[3*i+1] = C.float(s.Pos[i].Y)
		pos[3*i+2] = C.float(s.Pos[i].Z)
		mass[i] = C.float(s.Mass[i])
	}

	targets := make([]C.int, len(ids))
	for k, id := range ids {
		targets[k] = C.int(id)
	}

	accel := make([]C.float, 3*len(ids))

	C.bh_tree_accel(
		(*C.float)(unsafe.Pointer(&com[0])),
		(*C.float)(unsafe.Pointer(&center[0])),
		(*C.float)(unsafe.Pointer(&nodeMass[0])),
		(*C.float)(unsafe.Pointer(&width[0])),
		(*C.int)(unsafe.Pointer(&children[0])),
		(*C.int)(unsafe.Pointer(&pidx[0])),
		C.int(nNodes),
		(*C.float)(unsafe.Pointer(&pos[0])),
		(*C.float)(unsafe.Pointer(&mass[0])),
		(*C.int)(unsafe.Pointer(&targets[0])),
		C.int(len(ids)),
		C.float(w.Grav.Theta), C.float(w.Grav.G), C.float(w.Grav.Eps),
		(*C.float)(unsafe.Pointer(&accel[0])),
	)

	out := make([]r3.Vec, len(ids))
	for k := range out {
		out[k] = r3.Vec{
			X: float64(accel[3*k]),
			Y: float64(accel[3*k+1]),
			Z: float64(accel[3*k+2]),
		}
	}
	return out, nil
}
