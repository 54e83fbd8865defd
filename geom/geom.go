/*package geom provides the cubic bounding regions used to build octrees
over particle distributions.
*/
package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Cube is an axis-aligned cubic region described by its center and
// half-width. The cube spans [Center - HalfWidth, Center + HalfWidth]
// along every axis.
type Cube struct {
	Center    r3.Vec
	HalfWidth float64
}

// Width returns the full edge length of the cube.
func (c *Cube) Width() float64 { return 2 * c.HalfWidth }

// Contains returns true if v lies inside the cube. Points on the lower
// faces are inside and points on the upper faces are not, so that the
// eight octants of a parent cube partition it exactly.
func (c *Cube) Contains(v *r3.Vec) bool {
	return v.X >= c.Center.X-c.HalfWidth && v.X < c.Center.X+c.HalfWidth &&
		v.Y >= c.Center.Y-c.HalfWidth && v.Y < c.Center.Y+c.HalfWidth &&
		v.Z >= c.Center.Z-c.HalfWidth && v.Z < c.Center.Z+c.HalfWidth
}

// Octant returns the index, in [0, 8), of the octant of c containing v.
// Bit 0 is set for the upper x half, bit 1 for y, and bit 2 for z.
func (c *Cube) Octant(v *r3.Vec) int {
	oct := 0
	if v.X >= c.Center.X {
		oct |= 1
	}
	if v.Y >= c.Center.Y {
		oct |= 2
	}
	if v.Z >= c.Center.Z {
		oct |= 4
	}
	return oct
}

// Child returns the sub-cube corresponding to the given octant index.
func (c *Cube) Child(oct int) Cube {
	h := c.HalfWidth / 2
	child := Cube{Center: c.Center, HalfWidth: h}

	if oct&1 == 0 {
		child.Center.X -= h
	} else {
		child.Center.X += h
	}
	if oct&2 == 0 {
		child.Center.Y -= h
	} else {
		child.Center.Y += h
	}
	if oct&4 == 0 {
		child.Center.Z -= h
	} else {
		child.Center.Z += h
	}

	return child
}

// Bounding returns a cube guaranteed to contain every given point. The
// cube is centered on the midpoint of the points' axis-aligned bounding
// box and padded slightly so that no point sits exactly on an upper face.
func Bounding(pts []r3.Vec) Cube {
	if len(pts) == 0 {
		return Cube{HalfWidth: 1}
	}

	min, max := pts[0], pts[0]
	for i := 1; i < len(pts); i++ {
		p := &pts[i]
		min.X, max.X = minMax(min.X, max.X, p.X)
		min.Y, max.Y = minMax(min.Y, max.Y, p.Y)
		min.Z, max.Z = minMax(min.Z, max.Z, p.Z)
	}

	c := Cube{
		Center: r3.Vec{
			X: (min.X + max.X) / 2,
			Y: (min.Y + max.Y) / 2,
			Z: (min.Z + max.Z) / 2,
		},
	}

	hw := (max.X - min.X) / 2
	if w := (max.Y - min.Y) / 2; w > hw {
		hw = w
	}
	if w := (max.Z - min.Z) / 2; w > hw {
		hw = w
	}
	if hw == 0 {
		hw = 1
	}

	// The padding keeps the maximal points strictly below the upper faces.
	c.HalfWidth = hw * (1 + 1e-6)

	return c
}

func minMax(min, max, x float64) (outMin, outMax float64) {
	if x > max {
		return min, x
	} else if x < min {
		return x, max
	} else {
		return min, max
	}
}
