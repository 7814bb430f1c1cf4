package partition

import (
	"math"

	"github.com/notargets/xfer/geometry"
)

// Grid is the regular-uniform-grid fallback partitioner, used when source
// mesh is absent everywhere or below the CRB sampling threshold.
type Grid struct {
	box     geometry.BBox
	dim     int
	cells   [3]int // grid cell count per axis
	nranks  int
}

// NewGrid lays out a grid of roughly numRanks cells over box, as close to
// cubical as integer cell counts allow.
func NewGrid(box geometry.BBox, dim int, numRanks int) *Grid {
	g := &Grid{box: box, dim: dim, nranks: numRanks}
	if numRanks < 1 {
		numRanks = 1
	}
	perAxis := math.Max(1, math.Ceil(math.Pow(float64(numRanks), 1.0/float64(dim))))
	for d := 0; d < dim; d++ {
		g.cells[d] = int(perAxis)
	}
	for d := dim; d < 3; d++ {
		g.cells[d] = 1
	}
	return g
}

func (g *Grid) cellIndex(p []float64) [3]int {
	var idx [3]int
	for d := 0; d < g.dim; d++ {
		span := g.box.Max[d] - g.box.Min[d]
		if span <= 0 {
			idx[d] = 0
			continue
		}
		frac := (p[d] - g.box.Min[d]) / span
		i := int(frac * float64(g.cells[d]))
		if i < 0 {
			i = 0
		}
		if i >= g.cells[d] {
			i = g.cells[d] - 1
		}
		idx[d] = i
	}
	return idx
}

func (g *Grid) rankOf(idx [3]int) int {
	r := idx[0]
	stride := g.cells[0]
	for d := 1; d < g.dim; d++ {
		r += idx[d] * stride
		stride *= g.cells[d]
	}
	if r >= g.nranks {
		r = g.nranks - 1
	}
	return r
}

func (g *Grid) PointDestinationProc(p []float64) int {
	return g.rankOf(g.cellIndex(p))
}

func (g *Grid) BoxDestinationProcs(box geometry.BBox) []int {
	lo := g.cellIndex(box.Min[:])
	hi := g.cellIndex(box.Max[:])
	seen := map[int]bool{}
	var out []int
	var iterate func(d int, idx [3]int)
	iterate = func(d int, idx [3]int) {
		if d == g.dim {
			r := g.rankOf(idx)
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
			return
		}
		for i := lo[d]; i <= hi[d]; i++ {
			idx[d] = i
			iterate(d+1, idx)
		}
	}
	iterate(0, [3]int{})
	return out
}
