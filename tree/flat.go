package tree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ofenerci/behalf/geom"
)

// FlatTree is a serialized, read-only snapshot of a Tree: one record
// per node, stored in parallel arrays indexed by node handle. It is the
// form a tree takes when it crosses a worker boundary — copied to a
// device, or handed to a worker that never sees the builder. Traversal
// over a FlatTree is iterative, so it also works where recursion is
// unavailable or expensive.
type FlatTree struct {
	COM      []r3.Vec
	Center   []r3.Vec
	Mass     []float64
	Width    []float64
	Count    []int32
	PIdx     []int32
	Children [][8]int32

	merged map[int32][]int32
}

// Flatten serializes the last build of t. The snapshot shares no
// mutable state with the tree: later rebuilds of t do not affect it.
func (t *Tree) Flatten() *FlatTree {
	n := len(t.Nodes)
	ft := &FlatTree{
		COM:      make([]r3.Vec, n),
		Center:   make([]r3.Vec, n),
		Mass:     make([]float64, n),
		Width:    make([]float64, n),
		Count:    make([]int32, n),
		PIdx:     make([]int32, n),
		Children: make([][8]int32, n),
	}

	for i := range t.Nodes {
		nd := &t.Nodes[i]
		ft.COM[i] = nd.COM
		ft.Center[i] = nd.Cube.Center
		ft.Mass[i] = nd.Mass
		ft.Width[i] = nd.Cube.Width()
		ft.Count[i] = nd.Count
		ft.PIdx[i] = nd.PIdx
		ft.Children[i] = nd.Children
	}

	if t.merged != nil {
		ft.merged = make(map[int32][]int32, len(t.merged))
		for ni, pis := range t.merged {
			cp := make([]int32, len(pis))
			copy(cp, pis)
			ft.merged[ni] = cp
		}
	}

	return ft
}

// Len returns the number of nodes in the snapshot.
func (ft *FlatTree) Len() int { return len(ft.Mass) }

// cube reconstructs the bounding cube of node ni.
func (ft *FlatTree) cube(ni int32) geom.Cube {
	return geom.Cube{Center: ft.Center[ni], HalfWidth: ft.Width[ni] / 2}
}

// Accel evaluates the same traversal as Tree.Accel over the serialized
// node records, using an explicit stack instead of recursion.
func (ft *FlatTree) Accel(pos []r3.Vec, mass []float64, i int, grav *Gravity) r3.Vec {
	if ft.Len() == 0 {
		return r3.Vec{}
	}

	pi := int32(i)
	a := r3.Vec{}

	stack := make([]int32, 1, 64)
	stack[0] = 0

	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if ft.Count[ni] == 0 {
			continue
		}

		leaf := true
		for _, ci := range ft.Children[ni] {
			if ci != noChild {
				leaf = false
				break
			}
		}

		if leaf {
			if ft.PIdx[ni] == pi {
				continue
			}
			if ft.PIdx[ni] >= 0 {
				a = r3.Add(a, pointAccel(&pos[pi], &ft.COM[ni], ft.Mass[ni], grav))
				continue
			}
			for _, pj := range ft.merged[ni] {
				if pj == pi {
					continue
				}
				a = r3.Add(a, pointAccel(&pos[pi], &pos[pj], mass[pj], grav))
			}
			continue
		}

		// Nodes enclosing the target are always opened: accepting one
		// would fold the target's own mass into the approximation.
		cube := ft.cube(ni)
		if !cube.Contains(&pos[pi]) {
			delta := r3.Sub(ft.COM[ni], pos[pi])
			d := math.Sqrt(r3.Norm2(delta))
			if d > 0 && ft.Width[ni]/d < grav.Theta {
				a = r3.Add(a, pointAccel(&pos[pi], &ft.COM[ni], ft.Mass[ni], grav))
				continue
			}
		}

		for _, ci := range ft.Children[ni] {
			if ci != noChild {
				stack = append(stack, ci)
			}
		}
	}

	return a
}
