// Package rendezvous implements the central subsystem of the solution
// transfer core: it redistributes source entities into a third,
// geometrically load-balanced decomposition of the shared-domain box so a
// purely local search can find, for any target point, the source entity
// containing it and the rank that owns it.
package rendezvous

import (
	"log"
	"math"
	"sort"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/mesh"
	"github.com/notargets/xfer/partition"
	"github.com/notargets/xfer/search"
	"github.com/notargets/xfer/xfererr"
)

// boxExpansionPad is added on every face beyond the typical element length
// when the shared-domain box is enlarged for mesh-in-box filtering.
const boxExpansionPad = 1e-4

// Engine owns the rendezvous decomposition for one coupling: the spatial
// partitioner over the shared-domain box, the migrated rendezvous-space
// mesh, its search tree, and the element-id to source-rank map. One Engine
// instance lives on every rank; Build and the queries are collective or
// local exactly as the design requires.
type Engine struct {
	session *comm.Session
	rank    int
	dim     int
	box     geometry.BBox // shared-domain box
	expBox  geometry.BBox // box enlarged for filtering/routing

	part       partition.Partitioner
	rvMesh     *mesh.Manager
	tree       *search.ElementTree
	elemSource map[uint64]int

	geoms      []geometry.Geometry
	geomSource map[uint64]int

	pic   geometry.PointInCell
	built bool
}

// New constructs an Engine over the shared-domain box. No mesh yet; Build
// or BuildGeometry supplies the source side.
func New(s *comm.Session, rank, dim int, box geometry.BBox) (*Engine, error) {
	if dim < 1 || dim > 3 {
		return nil, xfererr.New(xfererr.Precondition, rank, "dimension %d outside [1,3]", dim)
	}
	if box.Empty {
		return nil, xfererr.New(xfererr.Domain, rank, "shared-domain box is empty")
	}
	return &Engine{
		session:    s,
		rank:       rank,
		dim:        dim,
		box:        box,
		expBox:     box,
		elemSource: make(map[uint64]int),
		geomSource: make(map[uint64]int),
		pic:        geometry.DefaultPointInCell,
	}, nil
}

// SetPointInCell injects a caller-supplied point-in-cell predicate in place
// of the built-in simplex-decomposition default. Must be called before
// Build.
func (e *Engine) SetPointInCell(pic geometry.PointInCell) { e.pic = pic }

// ExpandedBox is the shared-domain box after the mesh-in-box enlargement,
// the region target points are routed against.
func (e *Engine) ExpandedBox() geometry.BBox { return e.expBox }

type blockMeta struct {
	Topology    geometry.Topology
	Vpe         int
	Permutation []int
}

type elemRec struct {
	Block int
	ID    uint64
	Verts []uint64
}

type vertRec struct {
	Block int
	ID    uint64
	Coord [3]float64
}

// Build migrates mgr into rendezvous space. mgr may be nil on ranks that
// contribute no source data; those ranks still participate in every
// collective.
func (e *Engine) Build(mgr *mesh.Manager) error {
	s, rank := e.session, e.rank

	total := mesh.GlobalNumElements(s, rank, mgr)
	if total == 0 {
		return xfererr.New(xfererr.Domain, rank, "no source elements globally")
	}

	// Mesh-in-box filtering: enlarge by the typical element length so the
	// partitioner is never starved at the domain boundary.
	typicalLen := math.Pow(e.box.Volume(e.dim)/float64(total), 1/float64(e.dim))
	e.expBox = e.box.Expand(typicalLen + boxExpansionPad)
	mgr.FilterActiveInBox(e.expBox)
	log.Printf("rendezvous: rank %d filtered source mesh against expanded box (typicalLen=%g)", rank, typicalLen)

	// Partition construction over the surviving source coordinates. Every
	// rank builds the identical partition from the gathered sample.
	localCoords, localN := activeCoords(mgr, e.dim)
	allCoords, allN := gatherBlockedCoords(s, rank, e.dim, localCoords, localN)
	e.part = partition.New(e.expBox, e.dim, allCoords, allN, s.Size())
	log.Printf("rendezvous: rank %d built partition over %d source points", rank, allN)

	// Per-block metadata travels by broadcast from the source sub-comm root
	// so ranks that receive no entities still know the block set.
	srcSub := comm.NewSubComm(s, rank, mgr != nil)
	idx := comm.NewIndexer(srcSub)
	var metas []blockMeta
	if rank == idx.Root() {
		for _, b := range mgr.Blocks() {
			metas = append(metas, blockMeta{Topology: b.Topology, Vpe: b.VerticesPerElement, Permutation: b.Permutation})
		}
	}
	metas = comm.Bcast(s, rank, idx.Root(), metas)

	// Inverse-communication migration: one shared distributor, reused for
	// the element and vertex phases.
	dist := comm.SharedDistributor(s, rank)

	var elemDest []int
	var elemItems []elemRec
	var vertDest []int
	var vertItems []vertRec
	type vdKey struct {
		dest, block int
		id          uint64
	}
	vertSent := make(map[vdKey]bool)

	if mgr != nil {
		for bi, b := range mgr.Blocks() {
			activeE := mgr.ActiveElems(bi)
			ne := b.NumElems()
			for el := 0; el < ne; el++ {
				if !activeE[el] {
					continue
				}
				locals := b.ElementVertexLocalIndices(el)
				dests := map[int]bool{}
				for _, lv := range locals {
					if lv < 0 {
						continue
					}
					dests[e.part.PointDestinationProc(b.VertexCoord(lv))] = true
				}
				ranks := make([]int, 0, len(dests))
				for r := range dests {
					ranks = append(ranks, r)
				}
				sort.Ints(ranks)

				vpe := b.VerticesPerElement
				vids := make([]uint64, vpe)
				for i := 0; i < vpe; i++ {
					vids[i] = b.Connectivity[i*ne+el]
				}
				for _, r := range ranks {
					elemDest = append(elemDest, r)
					elemItems = append(elemItems, elemRec{Block: bi, ID: b.ElementIDs[el], Verts: vids})
					// A vertex follows every element it participates in.
					for _, lv := range locals {
						if lv < 0 {
							continue
						}
						key := vdKey{dest: r, block: bi, id: b.VertexIDs[lv]}
						if vertSent[key] {
							continue
						}
						vertSent[key] = true
						var c [3]float64
						copy(c[:e.dim], b.VertexCoord(lv))
						vertDest = append(vertDest, r)
						vertItems = append(vertItems, vertRec{Block: bi, ID: b.VertexIDs[lv], Coord: c})
					}
				}
			}
		}
	}

	recvElems, fromRanks, fromCounts := comm.Exchange(dist, rank, elemDest, elemItems)
	recvVerts, _, _ := comm.Exchange(dist, rank, vertDest, vertItems)
	log.Printf("rendezvous: rank %d received %d elements, %d vertices", rank, len(recvElems), len(recvVerts))

	// The distributor's from metadata yields the source rank of every
	// element; dedup into a sorted unique list per block.
	pos := 0
	elemsByBlock := make([]map[uint64][]uint64, len(metas))
	for i := range elemsByBlock {
		elemsByBlock[i] = make(map[uint64][]uint64)
	}
	for k, fr := range fromRanks {
		for c := 0; c < fromCounts[k]; c++ {
			rec := recvElems[pos]
			pos++
			if _, seen := e.elemSource[rec.ID]; !seen {
				e.elemSource[rec.ID] = fr
				elemsByBlock[rec.Block][rec.ID] = rec.Verts
			}
		}
	}

	vertsByBlock := make([]map[uint64][3]float64, len(metas))
	for i := range vertsByBlock {
		vertsByBlock[i] = make(map[uint64][3]float64)
	}
	for _, v := range recvVerts {
		vertsByBlock[v.Block][v.ID] = v.Coord
	}

	rv := mesh.NewManager(e.dim)
	for bi, meta := range metas {
		t, err := assembleBlock(rank, e.dim, meta, elemsByBlock[bi], vertsByBlock[bi])
		if err != nil {
			return err
		}
		rv.AddBlock(t)
	}
	e.rvMesh = rv

	e.tree = search.NewElementTree(rv, e.pic)
	log.Printf("rendezvous: rank %d indexed %d rendezvous elements", rank, e.tree.NumElements())

	s.Barrier(rank)
	e.built = true
	return nil
}

// assembleBlock reconstructs one rendezvous-space block from migrated
// element and vertex records, ids sorted ascending.
func assembleBlock(rank, dim int, meta blockMeta, elems map[uint64][]uint64, verts map[uint64][3]float64) (mesh.Traits, error) {
	vids := make([]uint64, 0, len(verts))
	for id := range verts {
		vids = append(vids, id)
	}
	sort.Slice(vids, func(i, j int) bool { return vids[i] < vids[j] })
	nv := len(vids)
	coords := make([]float64, dim*nv)
	for i, id := range vids {
		c := verts[id]
		for d := 0; d < dim; d++ {
			coords[d*nv+i] = c[d]
		}
	}

	eids := make([]uint64, 0, len(elems))
	for id := range elems {
		eids = append(eids, id)
	}
	sort.Slice(eids, func(i, j int) bool { return eids[i] < eids[j] })
	ne := len(eids)
	conn := make([]uint64, meta.Vpe*ne)
	for ei, id := range eids {
		ev := elems[id]
		if len(ev) != meta.Vpe {
			return nil, &xfererr.Error{Kind: xfererr.Invariant, Rank: rank, Expected: meta.Vpe, Actual: len(ev), Msg: "migrated element vertex count mismatch"}
		}
		for i := 0; i < meta.Vpe; i++ {
			conn[i*ne+ei] = ev[i]
		}
	}
	return mesh.NewSimpleTraits(dim, vids, coords, eids, conn, meta.Vpe, meta.Topology), nil
}

// activeCoords flattens the active vertex coordinates of every block into
// one blocked array.
func activeCoords(mgr *mesh.Manager, dim int) ([]float64, int) {
	if mgr == nil {
		return nil, 0
	}
	var pts [][]float64
	for bi, b := range mgr.Blocks() {
		active := mgr.ActiveVerts(bi)
		for i := 0; i < b.NumVerts(); i++ {
			if active[i] {
				pts = append(pts, b.VertexCoord(i))
			}
		}
	}
	n := len(pts)
	out := make([]float64, dim*n)
	for i, p := range pts {
		for d := 0; d < dim; d++ {
			out[d*n+i] = p[d]
		}
	}
	return out, n
}

type coordChunk struct {
	Coords []float64
	N      int
}

// gatherBlockedCoords all-gathers per-rank blocked coordinate arrays and
// concatenates them, preserving the blocked layout.
func gatherBlockedCoords(s *comm.Session, rank, dim int, coords []float64, n int) ([]float64, int) {
	all := comm.AllGather(s, rank, coordChunk{Coords: coords, N: n})
	total := 0
	for _, c := range all {
		total += c.N
	}
	out := make([]float64, dim*total)
	off := 0
	for _, c := range all {
		for d := 0; d < dim; d++ {
			copy(out[d*total+off:d*total+off+c.N], c.Coords[d*c.N:(d+1)*c.N])
		}
		off += c.N
	}
	return out, total
}

// ProcsContainingPoints returns, for each blocked point (coord[d*n+i]), the
// single rendezvous rank owning that location.
func (e *Engine) ProcsContainingPoints(blockedCoords []float64, n int) []int {
	out := make([]int, n)
	p := make([]float64, e.dim)
	for i := 0; i < n; i++ {
		for d := 0; d < e.dim; d++ {
			p[d] = blockedCoords[d*n+i]
		}
		out[i] = e.part.PointDestinationProc(p)
	}
	return out
}

// ProcsContainingBoxes returns, per box, every rendezvous rank whose region
// overlaps it (closed intervals: a box on a split face lists both sides).
func (e *Engine) ProcsContainingBoxes(boxes []geometry.BBox) [][]int {
	out := make([][]int, len(boxes))
	for i, b := range boxes {
		out[i] = e.part.BoxDestinationProcs(b)
	}
	return out
}

// ElementsContainingPoints searches the local rendezvous tree for each
// blocked point. On a hit, elems[i] is the containing element id and
// srcProcs[i] the rank that owned it in the primary decomposition; on a
// miss, search.InvalidElement and -1.
func (e *Engine) ElementsContainingPoints(blockedCoords []float64, n int, tol float64) (elems []uint64, srcProcs []int) {
	elems = make([]uint64, n)
	srcProcs = make([]int, n)
	p := make([]float64, e.dim)
	for i := 0; i < n; i++ {
		for d := 0; d < e.dim; d++ {
			p[d] = blockedCoords[d*n+i]
		}
		id, ok := e.tree.FindPoint(p, tol)
		if !ok {
			elems[i] = search.InvalidElement
			srcProcs[i] = -1
			continue
		}
		elems[i] = id
		srcProcs[i] = e.elemSource[id]
	}
	return elems, srcProcs
}

// ElementsInGeometry walks the rendezvous mesh and includes element el in
// geometry g iff every vertex of el lies in g within tol (allVertices
// true), else iff any one vertex does.
func (e *Engine) ElementsInGeometry(geoms []geometry.Geometry, tol float64, allVertices bool) [][]uint64 {
	out := make([][]uint64, len(geoms))
	if e.rvMesh == nil {
		return out
	}
	for gi, g := range geoms {
		for _, b := range e.rvMesh.Blocks() {
			ne := b.NumElems()
			for el := 0; el < ne; el++ {
				locals := b.ElementVertexLocalIndices(el)
				match := allVertices
				for _, lv := range locals {
					if lv < 0 {
						continue
					}
					in := g.Contains(pad3(b.VertexCoord(lv)), tol)
					if allVertices && !in {
						match = false
						break
					}
					if !allVertices && in {
						match = true
						break
					}
				}
				if match {
					out[gi] = append(out[gi], b.ElementIDs[el])
				}
			}
		}
	}
	return out
}

func pad3(p []float64) []float64 {
	if len(p) >= 3 {
		return p
	}
	out := make([]float64, 3)
	copy(out, p)
	return out
}
