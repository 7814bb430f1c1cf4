package geometry

import "gonum.org/v1/gonum/mat"

// Topology is the closed element-topology enumeration the traits façade
// reports for a mesh block.
type Topology int

const (
	Line Topology = iota
	Tri
	Quad
	Tet
	Pyramid
	Wedge
	Hex
)

func (t Topology) String() string {
	switch t {
	case Line:
		return "LINE"
	case Tri:
		return "TRI"
	case Quad:
		return "QUAD"
	case Tet:
		return "TET"
	case Pyramid:
		return "PYRAMID"
	case Wedge:
		return "WEDGE"
	case Hex:
		return "HEX"
	default:
		return "UNKNOWN"
	}
}

// VerticesPerElement returns the canonical node count for a linear element
// of the given topology.
func (t Topology) VerticesPerElement() int {
	switch t {
	case Line:
		return 2
	case Tri:
		return 3
	case Quad:
		return 4
	case Tet:
		return 4
	case Pyramid:
		return 5
	case Wedge:
		return 6
	case Hex:
		return 8
	default:
		return 0
	}
}

// PointInCell decides whether point p lies within tol of the reference cell
// spanned by vertCoords (blocked: vertCoords[d*nverts+i] is axis d of vertex
// i). The core treats this as an injectable, pure, local predicate — the
// real numerical kernel is an external collaborator; this default
// implementation decomposes every non-simplex topology into affine
// simplices, which is exact for flat-faced linear cells.
type PointInCell func(topo Topology, vertCoords []float64, dim, nverts int, p []float64, tol float64) bool

// DefaultPointInCell is the module's built-in predicate, used unless a
// caller injects their own numerical kernel.
func DefaultPointInCell(topo Topology, vertCoords []float64, dim, nverts int, p []float64, tol float64) bool {
	v := func(i, d int) float64 { return vertCoords[d*nverts+i] }
	vertex := func(i int) []float64 {
		out := make([]float64, dim)
		for d := 0; d < dim; d++ {
			out[d] = v(i, d)
		}
		return out
	}

	switch topo {
	case Line:
		return pointInSegment(vertex(0), vertex(1), p, tol)
	case Tri:
		return pointInSimplex([][]float64{vertex(0), vertex(1), vertex(2)}, p, dim, tol)
	case Tet:
		return pointInSimplex([][]float64{vertex(0), vertex(1), vertex(2), vertex(3)}, p, dim, tol)
	case Quad:
		for _, tri := range [][3]int{{0, 1, 2}, {0, 2, 3}} {
			if pointInSimplex([][]float64{vertex(tri[0]), vertex(tri[1]), vertex(tri[2])}, p, dim, tol) {
				return true
			}
		}
		return false
	case Pyramid:
		for _, tet := range [][4]int{{0, 1, 2, 4}, {0, 2, 3, 4}} {
			if pointInSimplex([][]float64{vertex(tet[0]), vertex(tet[1]), vertex(tet[2]), vertex(tet[3])}, p, dim, tol) {
				return true
			}
		}
		return false
	case Wedge:
		for _, tet := range [][4]int{{0, 1, 2, 5}, {0, 1, 5, 4}, {0, 4, 5, 3}} {
			if pointInSimplex([][]float64{vertex(tet[0]), vertex(tet[1]), vertex(tet[2]), vertex(tet[3])}, p, dim, tol) {
				return true
			}
		}
		return false
	case Hex:
		for _, tet := range [][4]int{
			{0, 6, 1, 2}, {0, 6, 2, 3}, {0, 6, 3, 7},
			{0, 6, 7, 4}, {0, 6, 4, 5}, {0, 6, 5, 1},
		} {
			if pointInSimplex([][]float64{vertex(tet[0]), vertex(tet[1]), vertex(tet[2]), vertex(tet[3])}, p, dim, tol) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func pointInSegment(a, b []float64, p []float64, tol float64) bool {
	// Parametric t such that p = a + t*(b-a); inside iff t in [0,1] within
	// tol AND p actually lies on the line within tol (handles dim>1 lines).
	var num, den float64
	for d := range a {
		diff := b[d] - a[d]
		num += (p[d] - a[d]) * diff
		den += diff * diff
	}
	if den == 0 {
		return false
	}
	t := num / den
	if t < -tol || t > 1+tol {
		return false
	}
	var dist2 float64
	for d := range a {
		proj := a[d] + t*(b[d]-a[d])
		diff := p[d] - proj
		dist2 += diff * diff
	}
	return dist2 <= tol*tol+1e-300
}

// pointInSimplex solves for barycentric coordinates of p with respect to the
// simplex verts (len(verts) == dim+1) and accepts if every coordinate is
// >= -tol (closed, tolerant containment).
func pointInSimplex(verts [][]float64, p []float64, dim int, tol float64) bool {
	n := dim + 1
	if len(verts) != n {
		return false
	}
	// Solve [v1-v0 | v2-v0 | ...] * lambda[1:] = p - v0 for the last n-1
	// barycentric weights; lambda[0] = 1 - sum(lambda[1:]).
	a := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)
	for d := 0; d < dim; d++ {
		b.SetVec(d, p[d]-verts[0][d])
		for j := 1; j < n; j++ {
			a.Set(d, j-1, verts[j][d]-verts[0][d])
		}
	}
	var lu mat.LU
	lu.Factorize(a)
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return false
	}
	sum := 0.0
	for j := 0; j < dim; j++ {
		lj := x.AtVec(j)
		if lj < -tol {
			return false
		}
		sum += lj
	}
	l0 := 1 - sum
	return l0 >= -tol
}
