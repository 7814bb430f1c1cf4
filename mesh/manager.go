package mesh

import (
	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/geometry"
)

// Manager aggregates blocks (one per element topology), caches active-
// entity bitmaps, and computes the global bounding box.
// A nil *Manager is legal everywhere the core accepts one:
// it represents a rank that contributes no source data but still
// participates in every collective.
type Manager struct {
	dim    int
	blocks []*Block

	activeVerts []([]bool)
	activeElems []([]bool)
}

// NewManager creates an empty manager for the given spatial dimension
// (1-3).
func NewManager(dim int) *Manager {
	return &Manager{dim: dim}
}

func (m *Manager) Dim() int { return m.dim }

// AddBlock ingests one Traits implementation (one element topology) into an
// owned Block, initializing its active bitmaps to "everything active".
func (m *Manager) AddBlock(t Traits) *Block {
	b := NewBlockFromTraits(t)
	m.blocks = append(m.blocks, b)
	verts := make([]bool, b.NumVerts())
	elems := make([]bool, b.NumElems())
	for i := range verts {
		verts[i] = true
	}
	for i := range elems {
		elems[i] = true
	}
	m.activeVerts = append(m.activeVerts, verts)
	m.activeElems = append(m.activeElems, elems)
	return b
}

func (m *Manager) Blocks() []*Block { return m.blocks }

func (m *Manager) ActiveVerts(blockIdx int) []bool { return m.activeVerts[blockIdx] }
func (m *Manager) ActiveElems(blockIdx int) []bool { return m.activeElems[blockIdx] }

// LocalNumElements sums element counts across local blocks.
func (m *Manager) LocalNumElements() int {
	n := 0
	for _, b := range m.blocks {
		n += b.NumElems()
	}
	return n
}

// GlobalNumElements all-reduces LocalNumElements across the session. A nil
// Manager contributes zero elements but still participates in the
// collective (callers must invoke this on every rank, passing a nil m
// where the local manager is absent).
func GlobalNumElements(s *comm.Session, rank int, m *Manager) int64 {
	local := 0
	if m != nil {
		local = m.LocalNumElements()
	}
	all := comm.AllGather(s, rank, int64(local))
	var sum int64
	for _, v := range all {
		sum += v
	}
	return sum
}

// LocalBBox is the tight box around every active vertex of every local
// block. A Manager with no blocks, or a nil Manager, reports the empty
// sentinel.
func (m *Manager) LocalBBox() geometry.BBox {
	if m == nil || len(m.blocks) == 0 {
		return geometry.EmptyBBox()
	}
	box := geometry.EmptyBBox()
	for bi, b := range m.blocks {
		active := m.activeVerts[bi]
		n := b.NumVerts()
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			c := b.VertexCoord(i)
			p := geometry.FromPoints(c, m.dim, 1)
			if box.Empty {
				box = p
				continue
			}
			for d := 0; d < m.dim; d++ {
				if p.Min[d] < box.Min[d] {
					box.Min[d] = p.Min[d]
				}
				if p.Max[d] > box.Max[d] {
					box.Max[d] = p.Max[d]
				}
			}
		}
	}
	return box
}

// GlobalBBox all-reduces LocalBBox over the session via AllGather + merge.
// m may be nil on this rank.
func GlobalBBox(s *comm.Session, rank int, dim int, m *Manager) geometry.BBox {
	var local geometry.BBox
	if m != nil {
		local = m.LocalBBox()
	} else {
		local = geometry.EmptyBBox()
	}
	all := comm.AllGather(s, rank, local)
	box := geometry.EmptyBBox()
	for _, b := range all {
		if b.Empty {
			continue
		}
		if box.Empty {
			box = b
			continue
		}
		for d := 0; d < dim; d++ {
			if b.Min[d] < box.Min[d] {
				box.Min[d] = b.Min[d]
			}
			if b.Max[d] > box.Max[d] {
				box.Max[d] = b.Max[d]
			}
		}
	}
	return box
}

// FilterActiveInBox implements the mesh-in-box filtering pass of the
// rendezvous build: mark each vertex active iff its
// coordinate lies in box, mark each element active iff any of its vertices
// is active, then re-mark all vertices of active elements active (the halo
// pull-in), deliberately over-approximating to avoid boundary starvation of
// the partitioner.
func (m *Manager) FilterActiveInBox(box geometry.BBox) {
	if m == nil {
		return
	}
	for bi, b := range m.blocks {
		nv := b.NumVerts()
		verts := make([]bool, nv)
		for i := 0; i < nv; i++ {
			verts[i] = box.Contains(b.VertexCoord(i), m.dim)
		}

		ne := b.NumElems()
		elems := make([]bool, ne)
		for e := 0; e < ne; e++ {
			for _, local := range b.ElementVertexLocalIndices(e) {
				if local >= 0 && verts[local] {
					elems[e] = true
					break
				}
			}
		}

		for e := 0; e < ne; e++ {
			if !elems[e] {
				continue
			}
			for _, local := range b.ElementVertexLocalIndices(e) {
				if local >= 0 {
					verts[local] = true
				}
			}
		}

		m.activeVerts[bi] = verts
		m.activeElems[bi] = elems
	}
}
