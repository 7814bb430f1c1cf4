package rendezvous

import (
	"log"
	"math"
	"sort"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/partition"
	"github.com/notargets/xfer/search"
	"github.com/notargets/xfer/xfererr"
)

type geomRec struct {
	ID   uint64
	Geom geometry.Geometry
}

// BuildGeometry migrates a collection of geometric primitives into
// rendezvous space, the volume-source counterpart of Build. geoms may be
// empty on ranks that contribute no source geometry; those ranks still
// participate in every collective.
func (e *Engine) BuildGeometry(geoms []geometry.Geometry) error {
	s, rank := e.session, e.rank

	total := comm.AllReduceSumInt(s, rank, len(geoms))
	if total == 0 {
		return xfererr.New(xfererr.Domain, rank, "no source geometries globally")
	}

	// The partition balances over the geometry bounding-box centroids; a
	// primitive has no natural vertex sample the way a mesh does.
	typicalLen := 0.0
	if v := e.box.Volume(e.dim); v > 0 {
		typicalLen = math.Pow(v/float64(total), 1/float64(e.dim))
	}
	e.expBox = e.box.Expand(typicalLen + boxExpansionPad)

	localCoords, localN := geomCentroids(geoms, e.dim)
	allCoords, allN := gatherBlockedCoords(s, rank, e.dim, localCoords, localN)
	e.part = partition.New(e.expBox, e.dim, allCoords, allN, s.Size())
	log.Printf("rendezvous: rank %d built geometry partition over %d centroids", rank, allN)

	// Each geometry goes to every rank whose region its bounding box
	// overlaps, via the same inverse-communication distributor elements use.
	dist := comm.SharedDistributor(s, rank)
	var dests []int
	var items []geomRec
	for _, g := range geoms {
		for _, r := range e.part.BoxDestinationProcs(g.Bounds()) {
			dests = append(dests, r)
			items = append(items, geomRec{ID: uint64(g.ID()), Geom: g})
		}
	}
	recv, fromRanks, fromCounts := comm.Exchange(dist, rank, dests, items)

	pos := 0
	byID := make(map[uint64]geometry.Geometry)
	for k, fr := range fromRanks {
		for c := 0; c < fromCounts[k]; c++ {
			rec := recv[pos]
			pos++
			if _, seen := e.geomSource[rec.ID]; !seen {
				e.geomSource[rec.ID] = fr
				byID[rec.ID] = rec.Geom
			}
		}
	}
	ids := make([]uint64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	e.geoms = e.geoms[:0]
	for _, id := range ids {
		e.geoms = append(e.geoms, byID[id])
	}
	log.Printf("rendezvous: rank %d holds %d rendezvous geometries", rank, len(e.geoms))

	s.Barrier(rank)
	e.built = true
	return nil
}

// GeometriesContainingPoints is the volume-source counterpart of
// ElementsContainingPoints: for each blocked point, the id of the first
// (lowest-id) containing geometry and its source rank, or
// search.InvalidElement and -1 on a miss.
func (e *Engine) GeometriesContainingPoints(blockedCoords []float64, n int, tol float64) (gids []uint64, srcProcs []int) {
	gids = make([]uint64, n)
	srcProcs = make([]int, n)
	p := make([]float64, 3)
	for i := 0; i < n; i++ {
		for d := range p {
			p[d] = 0
		}
		for d := 0; d < e.dim; d++ {
			p[d] = blockedCoords[d*n+i]
		}
		gids[i] = search.InvalidElement
		srcProcs[i] = -1
		for _, g := range e.geoms {
			if g.Contains(p, tol) {
				gids[i] = uint64(g.ID())
				srcProcs[i] = e.geomSource[gids[i]]
				break
			}
		}
	}
	return gids, srcProcs
}

// geomCentroids packs bounding-box centroids into a blocked array.
func geomCentroids(geoms []geometry.Geometry, dim int) ([]float64, int) {
	n := len(geoms)
	out := make([]float64, dim*n)
	for i, g := range geoms {
		b := g.Bounds()
		for d := 0; d < dim; d++ {
			out[d*n+i] = (b.Min[d] + b.Max[d]) / 2
		}
	}
	return out, n
}
