package sdmap

import (
	"log"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/field"
	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/rendezvous"
	"github.com/notargets/xfer/xfererr"
)

// VolumeMap is the geometry-driven sibling of Map: source entities are
// geometric primitives (boxes, cylinders, ...) instead of mesh elements,
// and "find element containing point" becomes "find geometry containing
// point" over the same rendezvous partition. All other contracts are
// identical.
type VolumeMap struct {
	Map
}

// NewVolumeMap constructs a VolumeMap on one rank of the parent session.
func NewVolumeMap(s *comm.Session, rank int, cfg Config) *VolumeMap {
	return &VolumeMap{Map: *New(s, rank, cfg)}
}

// Setup builds the map from a collection of source geometries (empty on
// ranks without source data) to a target coordinate field (nil on ranks
// without target points). Collective over every rank of the parent session.
func (m *VolumeMap) Setup(geoms []geometry.Geometry, tgt field.Traits) error {
	if err := m.precheck(); err != nil {
		return err
	}
	s, rank := m.session, m.rank

	srcIdx := comm.NewIndexer(comm.NewSubComm(s, rank, len(geoms) > 0))
	tgtIdx := comm.NewIndexer(comm.NewSubComm(s, rank, tgt != nil))
	if srcIdx.Size() == 0 {
		return xfererr.New(xfererr.Domain, rank, "no rank holds source geometries")
	}
	log.Printf("sdmap %s: rank %d volume setup, %d source ranks, %d target ranks", m.runID, rank, srcIdx.Size(), tgtIdx.Size())

	ords, blocked, n := m.computePointOrdinals(tgt)

	srcBox := globalGeomBBox(s, rank, m.cfg.Dim, geoms)
	tgtBox := targetGlobalBBox(s, rank, m.cfg.Dim, tgt)
	shared, ok := srcBox.Intersect(tgtBox, m.cfg.Dim)
	if !ok {
		return xfererr.New(xfererr.Domain, rank, "source geometries and target domain do not intersect")
	}

	eng, err := rendezvous.New(s, rank, m.cfg.Dim, shared)
	if err != nil {
		return err
	}
	if err := eng.BuildGeometry(geoms); err != nil {
		return err
	}
	m.engine = eng

	return m.buildPlan(eng, ords, blocked, n, eng.GeometriesContainingPoints)
}

// globalGeomBBox all-reduces the union of local geometry bounding boxes.
func globalGeomBBox(s *comm.Session, rank, dim int, geoms []geometry.Geometry) geometry.BBox {
	local := geometry.UnionBounds(geoms)
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
