package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/xfer/mesh"
)

func TestElementTree_FindPoint1D(t *testing.T) {
	m := mesh.NewManager(1)
	m.AddBlock(mesh.Line1DMesh(11, 0, 10, 0))
	tree := NewElementTree(m, nil)
	assert.Equal(t, 10, tree.NumElements())

	id, ok := tree.FindPoint([]float64{2.5}, 1e-9)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), id)

	id, ok = tree.FindPoint([]float64{42.0}, 1e-9)
	assert.False(t, ok)
	assert.Equal(t, InvalidElement, id)
}

func TestElementTree_SharedFaceDeterministic(t *testing.T) {
	m := mesh.NewManager(1)
	m.AddBlock(mesh.Line1DMesh(11, 0, 10, 0))
	tree := NewElementTree(m, nil)

	// Node 3.0 is the shared face of elements 2 and 3; the lower id claims
	// it, every time.
	for i := 0; i < 5; i++ {
		id, ok := tree.FindPoint([]float64{3.0}, 1e-9)
		assert.True(t, ok)
		assert.Equal(t, uint64(2), id)
	}
}

func TestElementTree_Quad2D(t *testing.T) {
	m := mesh.NewManager(2)
	m.AddBlock(mesh.Quad2DMesh(4, 4, 0, 4, 0, 4, 0))
	tree := NewElementTree(m, nil)
	assert.Equal(t, 16, tree.NumElements())

	// Centroid of cell (i=2, j=1) -> element id 1*4+2 = 6.
	id, ok := tree.FindPoint([]float64{2.5, 1.5}, 1e-9)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), id)
}

func TestElementTree_ToleranceNearFace(t *testing.T) {
	m := mesh.NewManager(1)
	m.AddBlock(mesh.Line1DMesh(2, 0, 1, 0))
	tree := NewElementTree(m, nil)

	// Just outside the element but within tol: considered inside.
	id, ok := tree.FindPoint([]float64{1.0 + 1e-8}, 1e-6)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), id)

	_, ok = tree.FindPoint([]float64{1.0 + 1e-3}, 1e-6)
	assert.False(t, ok)
}

func TestElementTree_EmptyMesh(t *testing.T) {
	tree := NewElementTree(nil, nil)
	id, ok := tree.FindPoint([]float64{0}, 1e-9)
	assert.False(t, ok)
	assert.Equal(t, InvalidElement, id)
}
