package partition

import (
	"fmt"
	"log"
	"sort"

	metis "github.com/notargets/go-metis"

	"github.com/notargets/xfer/mesh"
)

// MetisConfig holds configuration for graph-based element partitioning.
type MetisConfig struct {
	NumPartitions    int32
	ImbalanceFactor  float32 // e.g. 1.05 for 5% imbalance
	UseVertexWeights bool
	Objective        string // "cut" or "vol"
}

// DefaultMetisConfig returns the default graph-partitioning configuration.
func DefaultMetisConfig(nparts int32) *MetisConfig {
	return &MetisConfig{
		NumPartitions:    nparts,
		ImbalanceFactor:  1.05,
		UseVertexWeights: true,
		Objective:        "cut",
	}
}

// Metis balances a primary decomposition: unlike the geometric rendezvous
// partitioners, it operates on the element adjacency graph of a local mesh,
// producing an element-to-rank assignment a caller can use to rebalance its
// own decomposition before coupling. Elements are adjacent when they share
// at least dim vertices (an edge in 2-D, a face in 3-D).
type Metis struct {
	mgr    *mesh.Manager
	config *MetisConfig

	computeCostModel func(vpe int) int32
}

// NewMetis creates a partitioner over the given mesh manager.
func NewMetis(mgr *mesh.Manager, config *MetisConfig) *Metis {
	return &Metis{
		mgr:    mgr,
		config: config,
		// Cost proportional to element node count.
		computeCostModel: func(vpe int) int32 { return int32(vpe) },
	}
}

// Partition runs METIS over the element adjacency graph and returns one
// destination rank per element, in block order.
func (mp *Metis) Partition() ([]int, error) {
	ne := mp.mgr.LocalNumElements()
	log.Printf("partition: balancing %d elements into %d parts", ne, mp.config.NumPartitions)
	if ne == 0 {
		return nil, nil
	}
	if mp.config.NumPartitions < 2 {
		return make([]int, ne), nil
	}

	xadj, adjncy, vwgt := mp.buildGraph()

	opts := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if mp.config.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}

	ubvec := []float32{mp.config.ImbalanceFactor}
	var vwgtPtr []int32
	if mp.config.UseVertexWeights {
		vwgtPtr = vwgt
	}

	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgtPtr, nil,
		mp.config.NumPartitions, nil, ubvec, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	log.Printf("partition: METIS objective value %d", objval)

	out := make([]int, ne)
	for i := range out {
		out[i] = int(part[i])
	}
	return out, nil
}

// buildGraph converts mesh connectivity to METIS CSR format. Graph vertices
// are elements numbered consecutively across blocks.
func (mp *Metis) buildGraph() (xadj, adjncy, vwgt []int32) {
	dim := mp.mgr.Dim()
	ne := mp.mgr.LocalNumElements()

	// Vertex-id -> incident elements.
	type elemRef struct{ block, global int }
	incident := make(map[uint64][]int)
	refs := make([]elemRef, 0, ne)
	global := 0
	for bi, b := range mp.mgr.Blocks() {
		nb := b.NumElems()
		for e := 0; e < nb; e++ {
			refs = append(refs, elemRef{block: bi, global: global})
			for i := 0; i < b.VerticesPerElement; i++ {
				vid := b.Connectivity[i*nb+e]
				incident[vid] = append(incident[vid], global)
			}
			global++
		}
	}

	// Shared-vertex counts between element pairs.
	sharedCount := make([]map[int]int, ne)
	for i := range sharedCount {
		sharedCount[i] = make(map[int]int)
	}
	for _, elems := range incident {
		for i := 0; i < len(elems); i++ {
			for j := i + 1; j < len(elems); j++ {
				a, b := elems[i], elems[j]
				sharedCount[a][b]++
				sharedCount[b][a]++
			}
		}
	}

	vwgt = make([]int32, ne)
	xadj = make([]int32, ne+1)
	for _, r := range refs {
		b := mp.mgr.Blocks()[r.block]
		vwgt[r.global] = mp.computeCostModel(b.VerticesPerElement)

		var neighbors []int
		for other, count := range sharedCount[r.global] {
			if count >= dim {
				neighbors = append(neighbors, other)
			}
		}
		sort.Ints(neighbors)
		for _, nb := range neighbors {
			adjncy = append(adjncy, int32(nb))
		}
		xadj[r.global+1] = int32(len(adjncy))
	}
	return xadj, adjncy, vwgt
}
