package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func unitTetVerts() []float64 {
	// 4 verts, dim 3, blocked as vertCoords[d*4+i]
	// v0=(0,0,0) v1=(1,0,0) v2=(0,1,0) v3=(0,0,1)
	return []float64{
		0, 1, 0, 0, // x
		0, 0, 1, 0, // y
		0, 0, 0, 1, // z
	}
}

func TestDefaultPointInCell_Tet(t *testing.T) {
	verts := unitTetVerts()
	assert.True(t, DefaultPointInCell(Tet, verts, 3, 4, []float64{0.1, 0.1, 0.1}, 1e-9))
	assert.True(t, DefaultPointInCell(Tet, verts, 3, 4, []float64{0, 0, 0}, 1e-9))
	assert.False(t, DefaultPointInCell(Tet, verts, 3, 4, []float64{1, 1, 1}, 1e-9))
	// just outside, within tolerance
	assert.True(t, DefaultPointInCell(Tet, verts, 3, 4, []float64{-1e-10, 0, 0}, 1e-6))
}

func unitHexVerts() []float64 {
	// Standard hex ordering: 0..3 bottom CCW, 4..7 top CCW above 0..3.
	xs := []float64{0, 1, 1, 0, 0, 1, 1, 0}
	ys := []float64{0, 0, 1, 1, 0, 0, 1, 1}
	zs := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	out := make([]float64, 0, 24)
	out = append(out, xs...)
	out = append(out, ys...)
	out = append(out, zs...)
	return out
}

func TestDefaultPointInCell_Hex(t *testing.T) {
	verts := unitHexVerts()
	assert.True(t, DefaultPointInCell(Hex, verts, 3, 8, []float64{0.5, 0.5, 0.5}, 1e-9))
	assert.False(t, DefaultPointInCell(Hex, verts, 3, 8, []float64{1.5, 0.5, 0.5}, 1e-9))
	// corners
	assert.True(t, DefaultPointInCell(Hex, verts, 3, 8, []float64{0, 0, 0}, 1e-9))
	assert.True(t, DefaultPointInCell(Hex, verts, 3, 8, []float64{1, 1, 1}, 1e-9))
}

func TestDefaultPointInCell_Line(t *testing.T) {
	verts := []float64{0, 1} // x only, dim 1
	assert.True(t, DefaultPointInCell(Line, verts, 1, 2, []float64{0.5}, 1e-9))
	assert.False(t, DefaultPointInCell(Line, verts, 1, 2, []float64{1.5}, 1e-9))
}

func TestGeometryPrimitives(t *testing.T) {
	cyl := Cylinder{Gid: 1, Center: [3]float64{0, 0, 0}, Axis: [3]float64{0, 0, 1}, Radius: 1, Length: 2}
	assert.True(t, cyl.Contains([]float64{0, 0, 0}, 1e-9))
	assert.True(t, cyl.Contains([]float64{0.9, 0, 0.9}, 1e-9))
	assert.False(t, cyl.Contains([]float64{0, 0, 1.5}, 1e-9))
	assert.False(t, cyl.Contains([]float64{1.5, 0, 0}, 1e-9))
}
