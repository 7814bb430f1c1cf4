package geometry

import "math"

// Geometry is a source entity for the volume-source map variant: a
// geometric primitive that can report its own bounding box and test point
// containment, standing in for "element" in the mesh-based map.
type Geometry interface {
	ID() int
	Bounds() BBox
	Contains(p []float64, tol float64) bool
}

// Box is an axis-aligned box primitive tagged with a global id.
type Box struct {
	Gid int
	Box BBox
}

func (b Box) ID() int       { return b.Gid }
func (b Box) Bounds() BBox  { return b.Box }
func (b Box) Contains(p []float64, tol float64) bool {
	return b.Box.ContainsTol(p, 3, tol)
}

// Cylinder is a finite circular cylinder aligned with an arbitrary axis,
// used by the volume-source-map cylinder-coupling scenario.
type Cylinder struct {
	Gid    int
	Center [3]float64 // midpoint of the cylinder's axis
	Axis   [3]float64 // unit vector along the axis
	Radius float64
	Length float64 // total length along the axis
}

func (c Cylinder) ID() int { return c.Gid }

func (c Cylinder) Bounds() BBox {
	halfLen := c.Length / 2
	// Conservative AABB: center +/- (radius in every direction, extended by
	// the axial half-length along the axis direction).
	var min, max [3]float64
	for d := 0; d < 3; d++ {
		extent := c.Radius + halfLen*math.Abs(c.Axis[d])
		min[d] = c.Center[d] - extent
		max[d] = c.Center[d] + extent
	}
	return BBox{Min: min, Max: max}
}

func (c Cylinder) Contains(p []float64, tol float64) bool {
	var rel [3]float64
	for d := 0; d < 3; d++ {
		rel[d] = p[d] - c.Center[d]
	}
	axialDist := rel[0]*c.Axis[0] + rel[1]*c.Axis[1] + rel[2]*c.Axis[2]
	if math.Abs(axialDist) > c.Length/2+tol {
		return false
	}
	var radial [3]float64
	for d := 0; d < 3; d++ {
		radial[d] = rel[d] - axialDist*c.Axis[d]
	}
	r2 := radial[0]*radial[0] + radial[1]*radial[1] + radial[2]*radial[2]
	r := math.Sqrt(r2)
	return r <= c.Radius+tol
}

// UnionBounds returns the bounding box covering every geometry's box.
func UnionBounds(geoms []Geometry) BBox {
	box := EmptyBBox()
	for _, g := range geoms {
		gb := g.Bounds()
		if box.Empty {
			box = gb
			continue
		}
		for d := 0; d < 3; d++ {
			if gb.Min[d] < box.Min[d] {
				box.Min[d] = gb.Min[d]
			}
			if gb.Max[d] > box.Max[d] {
				box.Max[d] = gb.Max[d]
			}
		}
	}
	return box
}
