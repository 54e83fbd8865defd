/*package tree builds Barnes-Hut octrees over particle distributions and
evaluates softened gravitational accelerations by traversing them.

A Tree owns an arena of nodes referenced by integer handles. It is
rebuilt from scratch each step and read-only between a build and the
next: traversals for different particles may run concurrently.
*/
package tree

import (
	"fmt"

	"github.com/ofenerci/behalf/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxDepth caps subdivision during insertion. Particles that
// cannot be separated within this many levels are treated as coincident
// and merged into a single leaf.
const DefaultMaxDepth = 48

const noChild = int32(-1)

// Node is one cubic cell of the octree. A node is empty if Count == 0,
// a leaf if it has no children, and internal otherwise. Leaves normally
// hold exactly one particle, recorded in PIdx; a depth-capped leaf may
// aggregate several coincident particles, in which case PIdx == -1 and
// the particle indices live in the tree's merged table.
type Node struct {
	Cube     geom.Cube
	COM      r3.Vec
	Mass     float64
	Count    int32
	PIdx     int32
	Children [8]int32
}

// Leaf returns true if the node has no children.
func (nd *Node) Leaf() bool {
	for _, ci := range nd.Children {
		if ci != noChild {
			return false
		}
	}
	return true
}

// Tree is an arena-backed octree. The zero value is not usable; create
// trees with New. A Tree may be rebuilt any number of times with Build,
// reusing the arena.
type Tree struct {
	Nodes    []Node
	MaxDepth int

	depth  int
	merges int
	merged map[int32][]int32
}

// New returns an empty tree whose builds subdivide at most maxDepth
// levels. A non-positive maxDepth selects DefaultMaxDepth.
func New(maxDepth int) *Tree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tree{MaxDepth: maxDepth}
}

// Root returns the root node of the last build.
func (t *Tree) Root() *Node { return &t.Nodes[0] }

// Depth returns the deepest level reached during the last build. The
// root is at depth 0.
func (t *Tree) Depth() int { return t.depth }

// Merges returns how many particles were merged into depth-capped
// leaves during the last build. A non-zero value means some particles
// were numerically coincident.
func (t *Tree) Merges() int { return t.merges }

// Len returns the number of nodes in the last build.
func (t *Tree) Len() int { return len(t.Nodes) }

// Build constructs the octree for the given particle positions and
// masses inside cube. Any particle outside cube is an error: the caller
// must supply a bounding cube that encloses every particle (see
// geom.Bounding). The previous build's arena is reused.
func (t *Tree) Build(pos []r3.Vec, mass []float64, cube geom.Cube) error {
	if len(pos) == 0 {
		return fmt.Errorf("Cannot build a tree with no particles.")
	}
	if len(pos) != len(mass) {
		return fmt.Errorf(
			"Got %d positions but %d masses.", len(pos), len(mass),
		)
	}

	t.Nodes = t.Nodes[:0]
	t.depth = 0
	t.merges = 0
	t.merged = nil

	t.newNode(cube)

	for i := range pos {
		if !cube.Contains(&pos[i]) {
			return fmt.Errorf(
				"Particle %d at (%g, %g, %g) is outside the bounding cube "+
					"centered on (%g, %g, %g) with width %g.",
				i, pos[i].X, pos[i].Y, pos[i].Z,
				cube.Center.X, cube.Center.Y, cube.Center.Z, cube.Width(),
			)
		}
		t.insert(0, int32(i), 0, pos, mass)
	}

	t.summarize(0, pos, mass)

	return nil
}

// newNode appends a fresh node spanning cube to the arena and returns
// its handle.
func (t *Tree) newNode(cube geom.Cube) int32 {
	idx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{Cube: cube, PIdx: -1})
	nd := &t.Nodes[idx]
	for i := range nd.Children {
		nd.Children[i] = noChild
	}
	return idx
}

// insert places particle pi into the subtree rooted at ni.
func (t *Tree) insert(ni, pi int32, depth int, pos []r3.Vec, mass []float64) {
	if depth > t.depth {
		t.depth = depth
	}

	nd := &t.Nodes[ni]
	switch {
	case nd.Count == 0:
		// Empty leaf: the particle settles here.
		nd.PIdx = pi
		nd.Count = 1

	case nd.Leaf():
		if depth >= t.MaxDepth {
			t.merge(ni, pi)
			return
		}
		// Occupied leaf: split, pushing both the occupant and the new
		// particle down one level. nd may be invalidated by arena growth,
		// so reload it between insertions.
		occupant := nd.PIdx
		nd.PIdx = -1
		nd.Count = 0
		t.passDown(ni, occupant, depth, pos, mass)
		t.passDown(ni, pi, depth, pos, mass)
		t.Nodes[ni].Count = 2

	default:
		nd.Count++
		t.passDown(ni, pi, depth, pos, mass)
	}
}

// passDown routes particle pi into the child octant of ni that contains
// it, creating the child if needed.
func (t *Tree) passDown(ni, pi int32, depth int, pos []r3.Vec, mass []float64) {
	oct := t.Nodes[ni].Cube.Octant(&pos[pi])
	ci := t.Nodes[ni].Children[oct]
	if ci == noChild {
		ci = t.newNode(t.Nodes[ni].Cube.Child(oct))
		t.Nodes[ni].Children[oct] = ci
	}
	t.insert(ci, pi, depth+1, pos, mass)
}

// merge folds particle pi into the depth-capped leaf ni. The leaf keeps
// every member's index so self-interaction can still be skipped by
// identity during traversal.
func (t *Tree) merge(ni, pi int32) {
	nd := &t.Nodes[ni]
	if t.merged == nil {
		t.merged = make(map[int32][]int32)
	}
	if _, ok := t.merged[ni]; !ok {
		t.merged[ni] = []int32{nd.PIdx}
		nd.PIdx = -1
	}
	t.merged[ni] = append(t.merged[ni], pi)
	nd.Count++
	t.merges++
}

// summarize computes Mass and COM for the subtree rooted at ni,
// bottom-up. Leaves take their values directly from their particles;
// internal nodes take the mass-weighted combination of their children.
func (t *Tree) summarize(ni int32, pos []r3.Vec, mass []float64) {
	nd := &t.Nodes[ni]

	if nd.Leaf() {
		if nd.Count == 0 {
			return
		}
		if nd.PIdx >= 0 {
			nd.Mass = mass[nd.PIdx]
			nd.COM = pos[nd.PIdx]
			return
		}
		for _, pi := range t.merged[ni] {
			nd.Mass += mass[pi]
			nd.COM = r3.Add(nd.COM, r3.Scale(mass[pi], pos[pi]))
		}
		nd.COM = r3.Scale(1/nd.Mass, nd.COM)
		return
	}

	for _, ci := range nd.Children {
		if ci == noChild {
			continue
		}
		t.summarize(ci, pos, mass)
	}

	// Re-resolve nd: summarize doesn't grow the arena, but keep the
	// access pattern consistent with insert.
	nd = &t.Nodes[ni]
	for _, ci := range nd.Children {
		if ci == noChild {
			continue
		}
		child := &t.Nodes[ci]
		nd.Mass += child.Mass
		nd.COM = r3.Add(nd.COM, r3.Scale(child.Mass, child.COM))
	}
	if nd.Mass > 0 {
		nd.COM = r3.Scale(1/nd.Mass, nd.COM)
	}
}

// MergedLeaf returns the particle indices aggregated into a depth-capped
// leaf, or nil if ni is an ordinary node.
func (t *Tree) MergedLeaf(ni int32) []int32 {
	if t.merged == nil {
		return nil
	}
	return t.merged[ni]
}
