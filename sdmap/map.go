// Package sdmap builds and applies the shared-domain map: the persistent,
// reusable communication plan that carries field values from the source
// ranks owning the containing entities to the target ranks owning the
// points. Map couples a source mesh to a target point cloud; VolumeMap is
// the sibling variant coupling a collection of geometric primitives.
package sdmap

import (
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/field"
	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/mesh"
	"github.com/notargets/xfer/rendezvous"
	"github.com/notargets/xfer/search"
	"github.com/notargets/xfer/xfererr"
)

// Evaluator is the user callback invoked at apply time: given the source
// entity ids and blocked coordinates of the points they contain, it returns
// one value (or vector, blocked) per (entity, coord) pair.
type Evaluator func(entityIDs []uint64, blockedCoords []float64) ([]float64, error)

// Config carries the per-coupling settings of a Map.
type Config struct {
	Dim               int
	Tol               float64
	StoreMissedPoints bool
}

type state int

const (
	stateNew state = iota
	stateSetupComplete
)

// Map is the shared-domain map. One instance lives on every rank of the
// parent session; Setup and Apply are collective over all of them.
type Map struct {
	session *comm.Session
	rank    int
	cfg     Config
	runID   string
	state   state

	engine *rendezvous.Engine
	g      int64 // ordinal stride: all-reduced max local target count

	numLocalTargets int
	targetIndex     map[int64]int // target ordinal -> local point index

	// The persistent plan: entity ids the source evaluates at, the blocked
	// coordinates to evaluate at, the target ordinals those values belong
	// to, and the exporter that ships them.
	sourceElems  []uint64
	sourceOrds   []int64
	targetCoords []float64
	exporter     *exporter

	missed []int // local indices of missed target points, sorted
}

// New constructs a Map on one rank of the parent session.
func New(s *comm.Session, rank int, cfg Config) *Map {
	return &Map{
		session:     s,
		rank:        rank,
		cfg:         cfg,
		runID:       uuid.NewString()[:8],
		targetIndex: make(map[int64]int),
	}
}

// Setup builds the map: source mesh manager (nil on ranks without source
// data) to target coordinate field (nil on ranks without target points).
// Collective over every rank of the parent session.
func (m *Map) Setup(src *mesh.Manager, tgt field.Traits) error {
	if err := m.precheck(); err != nil {
		return err
	}
	s, rank := m.session, m.rank

	// Sub-communicator indexers for the source and target sides. Either
	// side may be absent on this rank; the indexer still knows its root.
	srcIdx := comm.NewIndexer(comm.NewSubComm(s, rank, src != nil))
	tgtIdx := comm.NewIndexer(comm.NewSubComm(s, rank, tgt != nil))
	if srcIdx.Size() == 0 {
		return xfererr.New(xfererr.Domain, rank, "no rank holds a source mesh")
	}
	log.Printf("sdmap %s: rank %d setup, %d source ranks, %d target ranks", m.runID, rank, srcIdx.Size(), tgtIdx.Size())

	ords, blocked, n := m.computePointOrdinals(tgt)

	srcBox := mesh.GlobalBBox(s, rank, m.cfg.Dim, src)
	tgtBox := targetGlobalBBox(s, rank, m.cfg.Dim, tgt)
	shared, ok := srcBox.Intersect(tgtBox, m.cfg.Dim)
	if !ok {
		return xfererr.New(xfererr.Domain, rank, "source and target domains do not intersect")
	}

	eng, err := rendezvous.New(s, rank, m.cfg.Dim, shared)
	if err != nil {
		return err
	}
	if err := eng.Build(src); err != nil {
		return err
	}
	m.engine = eng

	return m.buildPlan(eng, ords, blocked, n, eng.ElementsContainingPoints)
}

func (m *Map) precheck() error {
	if m.state != stateNew {
		return xfererr.New(xfererr.Precondition, m.rank, "setup already completed")
	}
	if m.cfg.Dim < 1 || m.cfg.Dim > 3 {
		return xfererr.New(xfererr.Precondition, m.rank, "dimension %d outside [1,3]", m.cfg.Dim)
	}
	if m.cfg.Tol <= 0 {
		return xfererr.New(xfererr.Precondition, m.rank, "tolerance %g must be positive", m.cfg.Tol)
	}
	return nil
}

// computePointOrdinals assigns each local target point the globally unique
// ordinal rank*G + n, where G is the all-reduced max of local point counts.
// One all-reduce, no prefix scan across possibly-absent sub-communicators.
func (m *Map) computePointOrdinals(tgt field.Traits) (ords []int64, blocked []float64, n int) {
	if tgt != nil {
		n = tgt.Size()
		blocked = tgt.Blocked()
	}
	m.numLocalTargets = n
	m.g = comm.AllReduceMaxInt64(m.session, m.rank, int64(n))
	ords = make([]int64, n)
	for i := 0; i < n; i++ {
		ords[i] = int64(m.rank)*m.g + int64(i)
		m.targetIndex[ords[i]] = i
	}
	return ords, blocked, n
}

// locateFunc resolves blocked points already in rendezvous space to the
// containing source entity and its owning rank.
type locateFunc func(blockedCoords []float64, n int, tol float64) ([]uint64, []int)

type routedPoint struct {
	Ord   int64
	Coord [3]float64
}

type hitRec struct {
	Ord   int64
	Elem  uint64
	Coord [3]float64
}

// buildPlan runs the routing, search, and plan-construction phases shared
// by the mesh-source and volume-source maps.
func (m *Map) buildPlan(eng *rendezvous.Engine, ords []int64, blocked []float64, n int, locate locateFunc) error {
	s, rank, dim := m.session, m.rank, m.cfg.Dim

	// Target-point routing: points outside the expanded rendezvous box get
	// the invalid ordinal and are dropped here; they are missed locally, no
	// echo needed.
	expBox := eng.ExpandedBox()
	var destRanks []int
	var routed []routedPoint
	p := make([]float64, dim)
	for i := 0; i < n; i++ {
		var c [3]float64
		for d := 0; d < dim; d++ {
			p[d] = blocked[d*n+i]
			c[d] = p[d]
		}
		if !expBox.Contains(p, dim) {
			m.recordMiss(ords[i])
			ords[i] = -1
			continue
		}
		destRanks = append(destRanks, eng.ProcsContainingPoints(p, 1)[0])
		routed = append(routed, routedPoint{Ord: ords[i], Coord: c})
	}
	targetDistributor := comm.SharedDistributor(s, rank)
	rvPoints, _, _ := comm.Exchange(targetDistributor, rank, destRanks, routed)
	log.Printf("sdmap %s: rank %d routed %d target points into rendezvous space", m.runID, rank, len(rvPoints))

	// Local search in rendezvous space.
	rvBlocked := make([]float64, dim*len(rvPoints))
	for i, rp := range rvPoints {
		for d := 0; d < dim; d++ {
			rvBlocked[d*len(rvPoints)+i] = rp.Coord[d]
		}
	}
	elems, srcProcs := locate(rvBlocked, len(rvPoints), m.cfg.Tol)

	// Misses echo back to the owning target rank through a dedicated
	// distributor, distinct from the target-routing one.
	missedDistributor := comm.SharedDistributor(s, rank)
	var missDest []int
	var missOrds []int64
	var hitDest []int
	var hits []hitRec
	for i, rp := range rvPoints {
		if elems[i] == search.InvalidElement {
			missDest = append(missDest, int(rp.Ord/m.g))
			missOrds = append(missOrds, rp.Ord)
			continue
		}
		hitDest = append(hitDest, srcProcs[i])
		hits = append(hits, hitRec{Ord: rp.Ord, Elem: elems[i], Coord: rp.Coord})
	}
	echoed, _, _ := comm.Exchange(missedDistributor, rank, missDest, missOrds)
	for _, ord := range echoed {
		m.recordMiss(ord)
	}
	sort.Ints(m.missed)

	// Source side: (targetOrdinal, entityId) pairs and the rendezvous-side
	// coordinates travel to the source-owning ranks.
	sourceDistributor := comm.SharedDistributor(s, rank)
	arrived, _, _ := comm.Exchange(sourceDistributor, rank, hitDest, hits)
	m.sourceElems = make([]uint64, len(arrived))
	m.sourceOrds = make([]int64, len(arrived))
	m.targetCoords = make([]float64, dim*len(arrived))
	for i, h := range arrived {
		m.sourceElems[i] = h.Elem
		m.sourceOrds[i] = h.Ord
		for d := 0; d < dim; d++ {
			m.targetCoords[d*len(arrived)+i] = h.Coord[d]
		}
	}
	if len(m.targetCoords) != dim*len(m.sourceElems) {
		return &xfererr.Error{Kind: xfererr.Invariant, Rank: rank, Expected: dim * len(m.sourceElems), Actual: len(m.targetCoords), Msg: "plan coordinate array size mismatch"}
	}

	// The persistent source-to-target exporter.
	m.exporter = newExporter(s, rank, m.sourceOrds, m.g)
	if m.exporter == nil {
		return xfererr.New(xfererr.Postcondition, rank, "exporter construction returned nil")
	}
	log.Printf("sdmap %s: rank %d plan built, %d source pairs, %d missed", m.runID, rank, len(m.sourceElems), len(m.missed))

	s.Barrier(rank)
	m.state = stateSetupComplete
	return nil
}

func (m *Map) recordMiss(ord int64) {
	if !m.cfg.StoreMissedPoints {
		return
	}
	if i, ok := m.targetIndex[ord]; ok {
		m.missed = append(m.missed, i)
	}
}

// Apply invokes the evaluator on the source-side (entity, coord) pairs and
// exports the resulting values to the target buffer. The target buffer is
// zeroed first so unmapped points read as zero. Collective; the prebuilt
// plan is reused verbatim on every call.
func (m *Map) Apply(eval Evaluator, tgt *field.Buffer) error {
	if m.state != stateSetupComplete {
		return xfererr.New(xfererr.Precondition, m.rank, "apply before setup")
	}
	s, rank := m.session, m.rank

	localDim := 0
	if tgt != nil {
		localDim = tgt.Dim()
	}
	fieldDim := int(comm.AllReduceMaxInt64(s, rank, int64(localDim)))
	if fieldDim == 0 {
		return xfererr.New(xfererr.Precondition, rank, "no target field on any rank")
	}
	if tgt != nil && tgt.Dim() != fieldDim {
		return &xfererr.Error{Kind: xfererr.Precondition, Rank: rank, Expected: fieldDim, Actual: tgt.Dim(), Msg: "target field dimension mismatch"}
	}
	if tgt != nil && tgt.Size() != m.numLocalTargets {
		return &xfererr.Error{Kind: xfererr.Bounds, Rank: rank, Expected: m.numLocalTargets, Actual: tgt.Size(), Msg: "target buffer size mismatch"}
	}

	var vals []float64
	if len(m.sourceElems) > 0 {
		if eval == nil {
			return xfererr.New(xfererr.Precondition, rank, "evaluator required on ranks holding source pairs")
		}
		var err error
		vals, err = eval(m.sourceElems, m.targetCoords)
		if err != nil {
			return xfererr.Wrap(xfererr.Bounds, rank, err, "evaluator failed")
		}
		if len(vals) != fieldDim*len(m.sourceElems) {
			return &xfererr.Error{Kind: xfererr.Bounds, Rank: rank, Expected: fieldDim * len(m.sourceElems), Actual: len(vals), Msg: "evaluator returned wrong size"}
		}
	}

	if tgt != nil {
		tgt.Zero()
	}
	for _, pkt := range m.exporter.export(vals, fieldDim) {
		i, ok := m.targetIndex[pkt.Ord]
		if !ok {
			return xfererr.New(xfererr.Invariant, rank, "exported ordinal %d not owned by this rank", pkt.Ord)
		}
		for d := 0; d < fieldDim; d++ {
			tgt.Set(i, d, pkt.Vals[d])
		}
	}
	return nil
}

// GetMissedTargetPoints returns the local indices of target points that did
// not land in any source entity, sorted ascending. Legal only when
// StoreMissedPoints was configured.
func (m *Map) GetMissedTargetPoints() ([]int, error) {
	if !m.cfg.StoreMissedPoints {
		return nil, xfererr.New(xfererr.Precondition, m.rank, "missed points were not stored")
	}
	if m.state != stateSetupComplete {
		return nil, xfererr.New(xfererr.Precondition, m.rank, "setup has not completed")
	}
	return m.missed, nil
}

// NumSourcePairs is the number of (entity, coord) pairs the local rank
// evaluates at apply time.
func (m *Map) NumSourcePairs() int { return len(m.sourceElems) }

// targetGlobalBBox is field.GlobalBBox with a nil-tolerant local side: a
// rank without target points contributes the empty sentinel.
func targetGlobalBBox(s *comm.Session, rank, dim int, tgt field.Traits) geometry.BBox {
	local := geometry.EmptyBBox()
	if tgt != nil {
		local = geometry.FromPoints(tgt.Blocked(), dim, tgt.Size())
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
