package sdmap

import "github.com/notargets/xfer/comm"

// exporter is the persistent source-to-target communication plan: the
// destination rank of every source-side pair is derived once from its
// target ordinal, and every Apply replays the same exchange.
type exporter struct {
	dist      *comm.Distributor
	rank      int
	ords      []int64
	destRanks []int
}

type valuePacket struct {
	Ord  int64
	Vals []float64
}

func newExporter(s *comm.Session, rank int, ords []int64, g int64) *exporter {
	x := &exporter{
		dist: comm.SharedDistributor(s, rank),
		rank: rank,
		ords: ords,
	}
	x.destRanks = make([]int, len(ords))
	for i, ord := range ords {
		x.destRanks[i] = int(ord / g)
	}
	return x
}

// export ships one fieldDim-vector per source pair (vals blocked:
// vals[d*n+i]) to the rank owning each pair's target ordinal, and returns
// the packets addressed to the caller.
func (x *exporter) export(vals []float64, fieldDim int) []valuePacket {
	n := len(x.ords)
	items := make([]valuePacket, n)
	for i := 0; i < n; i++ {
		v := make([]float64, fieldDim)
		for d := 0; d < fieldDim; d++ {
			v[d] = vals[d*n+i]
		}
		items[i] = valuePacket{Ord: x.ords[i], Vals: v}
	}
	recv, _, _ := comm.Exchange(x.dist, x.rank, x.destRanks, items)
	return recv
}
