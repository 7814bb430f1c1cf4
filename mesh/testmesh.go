package mesh

import "github.com/notargets/xfer/geometry"

// simpleTraits is a minimal, in-memory Traits implementation used by tests
// and the CLI's canned scenarios to avoid depending on any real external
// mesh container.
type simpleTraits struct {
	dim          int
	vertexIDs    []uint64
	coords       []float64
	elementIDs   []uint64
	connectivity []uint64
	vpe          int
	topology     geometry.Topology
}

func (s *simpleTraits) Dim() int                   { return s.dim }
func (s *simpleTraits) VertexIDs() []uint64         { return s.vertexIDs }
func (s *simpleTraits) Coords() []float64           { return s.coords }
func (s *simpleTraits) ElementIDs() []uint64        { return s.elementIDs }
func (s *simpleTraits) VerticesPerElement() int     { return s.vpe }
func (s *simpleTraits) Connectivity() []uint64      { return s.connectivity }
func (s *simpleTraits) Permutation() []int          { return nil }
func (s *simpleTraits) Topology() geometry.Topology { return s.topology }

// NewSimpleTraits builds a Traits value from plain slices, useful for
// embedding a user mesh's raw arrays without writing a bespoke adapter
// type.
func NewSimpleTraits(dim int, vertexIDs []uint64, coords []float64, elementIDs []uint64, connectivity []uint64, vpe int, topo geometry.Topology) Traits {
	return &simpleTraits{
		dim:          dim,
		vertexIDs:    vertexIDs,
		coords:       coords,
		elementIDs:   elementIDs,
		connectivity: connectivity,
		vpe:          vpe,
		topology:     topo,
	}
}

// Line1DMesh builds a 1-D line-element mesh of n equally spaced nodes
// covering [xmin, xmax]. Vertex and element ids start at idBase so ranks
// holding adjacent spans can keep their ids globally unique.
func Line1DMesh(n int, xmin, xmax float64, idBase uint64) Traits {
	coords := make([]float64, n)
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		coords[i] = xmin + t*(xmax-xmin)
		ids[i] = idBase + uint64(i)
	}
	nElems := n - 1
	elemIDs := make([]uint64, nElems)
	conn := make([]uint64, 2*nElems)
	for e := 0; e < nElems; e++ {
		elemIDs[e] = idBase + uint64(e)
		conn[0*nElems+e] = ids[e]
		conn[1*nElems+e] = ids[e+1]
	}
	return NewSimpleTraits(1, ids, coords, elemIDs, conn, 2, geometry.Line)
}

// Quad2DMesh builds an nx-by-ny structured quad mesh over the rectangle
// [x0,x1]x[y0,y1] with ids starting at idBase.
func Quad2DMesh(nx, ny int, x0, x1, y0, y1 float64, idBase uint64) Traits {
	nvx, nvy := nx+1, ny+1
	nv := nvx * nvy
	ids := make([]uint64, nv)
	coords := make([]float64, 2*nv)
	for j := 0; j < nvy; j++ {
		for i := 0; i < nvx; i++ {
			v := j*nvx + i
			ids[v] = idBase + uint64(v)
			coords[0*nv+v] = x0 + float64(i)/float64(nx)*(x1-x0)
			coords[1*nv+v] = y0 + float64(j)/float64(ny)*(y1-y0)
		}
	}
	ne := nx * ny
	elemIDs := make([]uint64, ne)
	conn := make([]uint64, 4*ne)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			e := j*nx + i
			elemIDs[e] = idBase + uint64(e)
			v00 := uint64(j*nvx + i)
			conn[0*ne+e] = idBase + v00
			conn[1*ne+e] = idBase + v00 + 1
			conn[2*ne+e] = idBase + v00 + uint64(nvx) + 1
			conn[3*ne+e] = idBase + v00 + uint64(nvx)
		}
	}
	return NewSimpleTraits(2, ids, coords, elemIDs, conn, 4, geometry.Quad)
}

// Hex3DMesh builds a single hex element spanning [min,max] on every axis,
// with the conventional bottom-face 0-3 / top-face 4-7 vertex ordering.
func Hex3DMesh(min, max float64, idBase uint64) Traits {
	corners := [8][3]float64{
		{min, min, min}, {max, min, min}, {max, max, min}, {min, max, min},
		{min, min, max}, {max, min, max}, {max, max, max}, {min, max, max},
	}
	ids := make([]uint64, 8)
	coords := make([]float64, 3*8)
	for i, c := range corners {
		ids[i] = idBase + uint64(i)
		for d := 0; d < 3; d++ {
			coords[d*8+i] = c[d]
		}
	}
	conn := make([]uint64, 8)
	for i := range conn {
		conn[i] = ids[i]
	}
	return NewSimpleTraits(3, ids, coords, []uint64{idBase}, conn, 8, geometry.Hex)
}
