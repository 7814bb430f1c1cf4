package partition

import (
	"sort"

	"github.com/notargets/xfer/geometry"
)

// CRB is a coordinate-recursive-bisection partitioner: it recursively
// splits the longest axis of the current region using a weighted median of
// the sampled source coordinates that fall in it, so each leaf rank ends up
// with roughly equal source load.
type CRB struct {
	dim  int
	root *crbNode
}

type crbNode struct {
	box         geometry.BBox
	axis        int
	split       float64
	left, right *crbNode
	rank        int // valid at leaves only
	leaf        bool
}

// NewCRB builds the bisection tree over box for numRanks ranks from
// blockedCoords (dim*numPoints, column-major).
func NewCRB(box geometry.BBox, dim int, blockedCoords []float64, numPoints, numRanks int) *CRB {
	pts := make([][]float64, numPoints)
	for i := 0; i < numPoints; i++ {
		p := make([]float64, dim)
		for d := 0; d < dim; d++ {
			p[d] = blockedCoords[d*numPoints+i]
		}
		pts[i] = p
	}
	ranks := make([]int, numRanks)
	for i := range ranks {
		ranks[i] = i
	}
	return &CRB{dim: dim, root: bisect(box, dim, pts, ranks)}
}

func bisect(box geometry.BBox, dim int, pts [][]float64, ranks []int) *crbNode {
	if len(ranks) == 1 {
		return &crbNode{box: box, rank: ranks[0], leaf: true}
	}

	axis := longestAxis(box, dim)
	sort.Slice(pts, func(i, j int) bool { return pts[i][axis] < pts[j][axis] })

	leftCount := len(ranks) / 2
	if leftCount == 0 {
		leftCount = 1
	}
	leftRanks, rightRanks := ranks[:leftCount], ranks[leftCount:]

	splitIdx := 0
	if len(pts) > 0 {
		splitIdx = len(pts) * leftCount / len(ranks)
		if splitIdx <= 0 {
			splitIdx = 1
		}
		if splitIdx >= len(pts) {
			splitIdx = len(pts) - 1
		}
	}

	var splitVal float64
	if len(pts) > 0 {
		splitVal = pts[splitIdx][axis]
	} else {
		splitVal = (box.Min[axis] + box.Max[axis]) / 2
	}

	leftBox, rightBox := splitBox(box, axis, splitVal)

	var leftPts, rightPts [][]float64
	if len(pts) > 0 {
		leftPts, rightPts = pts[:splitIdx], pts[splitIdx:]
	}

	return &crbNode{
		box:   box,
		axis:  axis,
		split: splitVal,
		left:  bisect(leftBox, dim, leftPts, leftRanks),
		right: bisect(rightBox, dim, rightPts, rightRanks),
	}
}

func longestAxis(box geometry.BBox, dim int) int {
	best, bestLen := 0, -1.0
	for d := 0; d < dim; d++ {
		l := box.Max[d] - box.Min[d]
		if l > bestLen {
			bestLen = l
			best = d
		}
	}
	return best
}

func splitBox(box geometry.BBox, axis int, val float64) (geometry.BBox, geometry.BBox) {
	left, right := box, box
	left.Max[axis] = val
	right.Min[axis] = val
	return left, right
}

func (c *CRB) PointDestinationProc(p []float64) int {
	n := c.root
	for !n.leaf {
		// Ties break toward the lower-indexed (left) child.
		if p[n.axis] <= n.split {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.rank
}

func (c *CRB) BoxDestinationProcs(box geometry.BBox) []int {
	var out []int
	collectOverlapping(c.root, box, c.dim, &out)
	return out
}

func collectOverlapping(n *crbNode, box geometry.BBox, dim int, out *[]int) {
	if n == nil {
		return
	}
	if n.leaf {
		*out = append(*out, n.rank)
		return
	}
	// A box that touches the split value (closed interval) must be
	// reported on both sides, matching BBox.Overlaps' closed-interval
	// semantics.
	if box.Min[n.axis] <= n.split {
		collectOverlapping(n.left, box, dim, out)
	}
	if box.Max[n.axis] >= n.split {
		collectOverlapping(n.right, box, dim, out)
	}
}
