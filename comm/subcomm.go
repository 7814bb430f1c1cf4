package comm

// SubComm is a sub-communicator carved out of a parent Session: the subset
// of parent ranks for which `participates` was true get a live child
// Session; all other parent ranks still learn the L2G table (so they can
// seed broadcasts) but carry a nil Session — the sub-comm may be absent on
// a process.
type SubComm struct {
	Session   *Session // nil if this parent rank does not participate
	LocalRank int      // -1 if this parent rank does not participate
	L2G       []int    // L2G[i] = parent global rank of sub-rank i
}

// NewSubComm builds a sub-communicator with a single AllGather over the
// parent session plus one Bcast to hand every parent rank a shared child
// Session object.
func NewSubComm(parent *Session, rank int, participates bool) *SubComm {
	flags := AllGather(parent, rank, participates)

	l2g := make([]int, 0, len(flags))
	localRank := -1
	for g, p := range flags {
		if p {
			if g == rank {
				localRank = len(l2g)
			}
			l2g = append(l2g, g)
		}
	}

	if len(l2g) == 0 {
		return &SubComm{L2G: l2g, LocalRank: -1}
	}

	creator := l2g[0]
	var mine *Session
	if rank == creator {
		mine = NewSession(len(l2g))
	}
	shared := Bcast(parent, rank, creator, mine)

	sc := &SubComm{L2G: l2g, LocalRank: -1}
	if participates {
		sc.Session = shared
		sc.LocalRank = localRank
	}
	return sc
}

// Indexer maps ranks between a sub-communicator and its enclosing parent
// communicator. It is built once from a SubComm and answers
// L2G/G2L queries thereafter without further collectives.
type Indexer struct {
	l2g map[int]int // sub-rank -> parent rank
	g2l map[int]int // parent rank -> sub-rank
}

// NewIndexer wraps a SubComm's L2G table. Valid to call on every parent
// rank, whether or not it participates in the sub-comm.
func NewIndexer(sc *SubComm) *Indexer {
	idx := &Indexer{l2g: make(map[int]int), g2l: make(map[int]int)}
	for sub, glob := range sc.L2G {
		idx.l2g[sub] = glob
		idx.g2l[glob] = sub
	}
	return idx
}

// L2G returns the parent rank of the given sub-rank.
func (idx *Indexer) L2G(subRank int) (int, bool) {
	g, ok := idx.l2g[subRank]
	return g, ok
}

// G2L returns the sub-rank of the given parent rank, if it participates.
func (idx *Indexer) G2L(parentRank int) (int, bool) {
	s, ok := idx.g2l[parentRank]
	return s, ok
}

// Size is the number of ranks in the sub-communicator.
func (idx *Indexer) Size() int { return len(idx.l2g) }

// Root is the parent rank of sub-rank 0, used to seed broadcasts when the
// sub-comm is absent on the local parent rank.
func (idx *Indexer) Root() int {
	g, _ := idx.L2G(0)
	return g
}
