package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBBox_Intersect(t *testing.T) {
	a := NewBBox([3]float64{0, 0, 0}, [3]float64{2, 2, 2})
	b := NewBBox([3]float64{1, 1, 1}, [3]float64{3, 3, 3})
	got, ok := a.Intersect(b, 3)
	assert.True(t, ok)
	assert.Equal(t, [3]float64{1, 1, 1}, got.Min)
	assert.Equal(t, [3]float64{2, 2, 2}, got.Max)

	c := NewBBox([3]float64{5, 5, 5}, [3]float64{6, 6, 6})
	_, ok = a.Intersect(c, 3)
	assert.False(t, ok)
}

func TestBBox_Contains(t *testing.T) {
	box := NewBBox([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	assert.True(t, box.Contains([]float64{0.5, 0.5, 0.5}, 3))
	assert.True(t, box.Contains([]float64{0, 0, 0}, 3)) // closed interval
	assert.False(t, box.Contains([]float64{1.1, 0, 0}, 3))
}

func TestBBox_Empty(t *testing.T) {
	empty := EmptyBBox()
	assert.True(t, empty.Empty)
	assert.Equal(t, 0.0, empty.Volume(3))
	assert.False(t, empty.Contains([]float64{0, 0, 0}, 3))

	malformed := NewBBox([3]float64{1, 0, 0}, [3]float64{0, 1, 1})
	assert.True(t, malformed.Empty)
}

func TestBBox_Expand(t *testing.T) {
	box := NewBBox([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	e := box.Expand(0.5)
	assert.Equal(t, [3]float64{-0.5, -0.5, -0.5}, e.Min)
	assert.Equal(t, [3]float64{1.5, 1.5, 1.5}, e.Max)
}

func TestFromPoints(t *testing.T) {
	// blocked layout: coord[d*n+i]
	coords := []float64{
		0, 1, 2, // x
		5, 3, 4, // y
	}
	box := FromPoints(coords, 2, 3)
	assert.Equal(t, 0.0, box.Min[0])
	assert.Equal(t, 2.0, box.Max[0])
	assert.Equal(t, 3.0, box.Min[1])
	assert.Equal(t, 5.0, box.Max[1])
}
