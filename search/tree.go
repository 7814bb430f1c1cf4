// Package search provides the local element search tree used in rendezvous
// space: a kd-tree over per-element bounding boxes with a point-in-cell
// refinement step.
package search

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/mesh"
)

// InvalidElement is the sentinel returned when no element contains a point.
const InvalidElement uint64 = math.MaxUint64

// elemEntry locates one element in the tree: its centroid is the kd-tree
// key, its box and indices drive the refinement step.
type elemEntry struct {
	centroid [3]float64
	box      geometry.BBox
	id       uint64
	blockIdx int
	elemIdx  int
	dim      int
}

func (e elemEntry) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(elemEntry)
	return e.centroid[d] - q.centroid[d]
}

func (e elemEntry) Dims() int { return e.dim }

// Distance returns the squared Euclidean distance between centroids, the
// metric kdtree.DistKeeper bounds against.
func (e elemEntry) Distance(c kdtree.Comparable) float64 {
	q := c.(elemEntry)
	var sum float64
	for d := 0; d < e.dim; d++ {
		diff := e.centroid[d] - q.centroid[d]
		sum += diff * diff
	}
	return sum
}

type elemEntries []elemEntry

func (e elemEntries) Index(i int) kdtree.Comparable { return e[i] }
func (e elemEntries) Len() int                      { return len(e) }
func (e elemEntries) Pivot(d kdtree.Dim) int {
	return plane{elemEntries: e, Dim: d}.Pivot()
}
func (e elemEntries) Slice(start, end int) kdtree.Interface { return e[start:end] }

type plane struct {
	kdtree.Dim
	elemEntries
}

func (p plane) Less(i, j int) bool {
	return p.elemEntries[i].centroid[p.Dim] < p.elemEntries[j].centroid[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.elemEntries = p.elemEntries[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.elemEntries[i], p.elemEntries[j] = p.elemEntries[j], p.elemEntries[i]
}

// ElementTree is a kd-tree of element bounding boxes plus the owning mesh
// manager, built over the rendezvous-space mesh after migration.
type ElementTree struct {
	mgr         *mesh.Manager
	dim         int
	tree        *kdtree.Tree
	entries     elemEntries
	maxHalfDiag float64
	pic         geometry.PointInCell
}

// NewElementTree indexes every element of every block of mgr. The pic
// predicate confirms candidate containment; nil selects the built-in
// simplex-decomposition predicate.
func NewElementTree(mgr *mesh.Manager, pic geometry.PointInCell) *ElementTree {
	if pic == nil {
		pic = geometry.DefaultPointInCell
	}
	t := &ElementTree{mgr: mgr, pic: pic}
	if mgr == nil {
		return t
	}
	t.dim = mgr.Dim()
	for bi, b := range mgr.Blocks() {
		ne := b.NumElems()
		for e := 0; e < ne; e++ {
			box := b.ElementBBox(e)
			if box.Empty {
				continue
			}
			var c [3]float64
			var diag2 float64
			for d := 0; d < t.dim; d++ {
				c[d] = (box.Min[d] + box.Max[d]) / 2
				half := (box.Max[d] - box.Min[d]) / 2
				diag2 += half * half
			}
			if hd := math.Sqrt(diag2); hd > t.maxHalfDiag {
				t.maxHalfDiag = hd
			}
			t.entries = append(t.entries, elemEntry{
				centroid: c,
				box:      box,
				id:       b.ElementIDs[e],
				blockIdx: bi,
				elemIdx:  e,
				dim:      t.dim,
			})
		}
	}
	if len(t.entries) > 0 {
		t.tree = kdtree.New(t.entries, true)
	}
	return t
}

// NumElements is the number of indexed elements.
func (t *ElementTree) NumElements() int { return len(t.entries) }

// FindPoint locates the element containing p within absolute tolerance tol.
// The kd-tree collects candidates whose expanded bounding box can contain p;
// the topology predicate then confirms containment in the reference cell.
// Candidates are confirmed in ascending element-id order so the claiming
// element for a point on a shared face is deterministic across runs. On
// miss, returns (InvalidElement, false).
func (t *ElementTree) FindPoint(p []float64, tol float64) (uint64, bool) {
	if t == nil || t.tree == nil {
		return InvalidElement, false
	}
	q := elemEntry{dim: t.dim}
	copy(q.centroid[:t.dim], p[:t.dim])

	// Any element whose tol-expanded box holds p has its centroid within
	// maxHalfDiag + tol*sqrt(dim) of p; 2*tol is a conservative cover.
	r := t.maxHalfDiag + 2*tol + 1e-300
	keeper := kdtree.NewDistKeeper(r * r)
	t.tree.NearestSet(keeper, q)

	var candidates []elemEntry
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		e := cd.Comparable.(elemEntry)
		if e.box.ContainsTol(p, t.dim, tol) {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].id < candidates[j].id })

	for _, e := range candidates {
		b := t.mgr.Blocks()[e.blockIdx]
		verts := b.ElementVertexCoordsBlocked(e.elemIdx)
		if t.pic(b.Topology, verts, t.dim, b.VerticesPerElement, p, tol) {
			return e.id, true
		}
	}
	return InvalidElement, false
}
