package mesh

import "github.com/notargets/xfer/geometry"

// Block is a concrete, owned copy of one Traits value: a subset of a mesh
// with a single element topology. A Manager ingests an
// arbitrary Traits implementation into a Block once, at AddBlock time, so
// every later phase (filtering, migration, search) works against plain
// owned slices rather than re-invoking the external façade.
type Block struct {
	Topology            geometry.Topology
	VerticesPerElement  int
	VertexIDs           []uint64
	Coords              []float64 // blocked: dim*numVerts
	ElementIDs          []uint64
	Connectivity        []uint64 // blocked: vertsPerElem*numElems
	Permutation         []int
	dim                 int
	idToLocal           map[uint64]int
}

// NewBlockFromTraits copies out of an arbitrary Traits implementation.
func NewBlockFromTraits(t Traits) *Block {
	b := &Block{
		Topology:           t.Topology(),
		VerticesPerElement: t.VerticesPerElement(),
		VertexIDs:          append([]uint64(nil), t.VertexIDs()...),
		Coords:             append([]float64(nil), t.Coords()...),
		ElementIDs:         append([]uint64(nil), t.ElementIDs()...),
		Connectivity:       append([]uint64(nil), t.Connectivity()...),
		Permutation:        append([]int(nil), t.Permutation()...),
		dim:                t.Dim(),
	}
	b.buildIndex()
	return b
}

func (b *Block) buildIndex() {
	b.idToLocal = make(map[uint64]int, len(b.VertexIDs))
	for i, id := range b.VertexIDs {
		b.idToLocal[id] = i
	}
}

func (b *Block) NumVerts() int { return len(b.VertexIDs) }
func (b *Block) NumElems() int { return len(b.ElementIDs) }
func (b *Block) Dim() int      { return b.dim }

// LocalVertexIndex maps a vertex id to its index in VertexIDs/Coords.
func (b *Block) LocalVertexIndex(id uint64) (int, bool) {
	if b.idToLocal == nil {
		b.buildIndex()
	}
	i, ok := b.idToLocal[id]
	return i, ok
}

// VertexCoord returns a freshly-copied dim-length coordinate for local
// vertex index i.
func (b *Block) VertexCoord(i int) []float64 {
	n := b.NumVerts()
	out := make([]float64, b.dim)
	for d := 0; d < b.dim; d++ {
		out[d] = b.Coords[d*n+i]
	}
	return out
}

// ElementVertexLocalIndices returns, for element e, the local vertex
// indices (into VertexIDs/Coords) of its VerticesPerElement nodes.
func (b *Block) ElementVertexLocalIndices(e int) []int {
	ne := b.NumElems()
	out := make([]int, b.VerticesPerElement)
	for i := 0; i < b.VerticesPerElement; i++ {
		id := b.Connectivity[i*ne+e]
		local, ok := b.LocalVertexIndex(id)
		if !ok {
			local = -1
		}
		out[i] = local
	}
	return out
}

// ElementVertexCoordsBlocked returns the element's node coordinates in the
// same blocked convention Traits uses, sized dim*VerticesPerElement.
func (b *Block) ElementVertexCoordsBlocked(e int) []float64 {
	nv := b.VerticesPerElement
	locals := b.ElementVertexLocalIndices(e)
	out := make([]float64, b.dim*nv)
	for i, local := range locals {
		if local < 0 {
			continue
		}
		c := b.VertexCoord(local)
		for d := 0; d < b.dim; d++ {
			out[d*nv+i] = c[d]
		}
	}
	return out
}

// ElementBBox returns the bounding box of element e's nodes.
func (b *Block) ElementBBox(e int) geometry.BBox {
	coords := b.ElementVertexCoordsBlocked(e)
	return geometry.FromPoints(coords, b.dim, b.VerticesPerElement)
}
