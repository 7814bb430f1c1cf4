package comm

// Distributor is the inverse-communication primitive: each sender knows
// its destinations, no receiver knows its senders in advance, and the
// runtime derives the receive plan. Ranks post items keyed by destination,
// then deliver and drain in barrier-separated phases; the barriers keep
// concurrent rank goroutines from draining a round before every post of
// that round has landed.
//
// A Distributor can be reused for any number of rounds by calling Exchange
// repeatedly: the rendezvous engine reuses one for its element and vertex
// phases, while the shared-domain map builds separate ones for target
// routing, missed-point echo, source shipment, and its exporter.
type Distributor struct {
	session *Session
	np      int
	postQ   [][]bucket
	inbox   []chan fromChunk
}

type bucket struct {
	dest  int
	items []interface{}
}

type fromChunk struct {
	from  int
	items []interface{}
}

// NewDistributor builds a Distributor over session. Every rank of session
// must call Exchange the same number of times, in the same order, for the
// barriers to line up — true automatically when every rank runs the same
// SPMD build/setup sequence.
func NewDistributor(s *Session) *Distributor {
	np := s.Size()
	d := &Distributor{session: s, np: np}
	d.postQ = make([][]bucket, np)
	d.inbox = make([]chan fromChunk, np)
	for i := range d.inbox {
		d.inbox[i] = make(chan fromChunk, np)
	}
	return d
}

// Exchange ships items[i] to destRanks[i] for every i, and returns the
// concatenated items addressed to the caller's rank along with the
// "from images / from lengths" replay: fromRanks[k] sent fromCounts[k] items,
// contiguous in received, in ascending arrival order.
func Exchange[T any](d *Distributor, rank int, destRanks []int, items []T) (received []T, fromRanks []int, fromCounts []int) {
	buckets := map[int][]interface{}{}
	order := make([]int, 0, len(destRanks))
	for i, dest := range destRanks {
		if _, ok := buckets[dest]; !ok {
			order = append(order, dest)
		}
		buckets[dest] = append(buckets[dest], boxValue(items[i]))
	}
	my := make([]bucket, 0, len(order))
	for _, dest := range order {
		my = append(my, bucket{dest: dest, items: buckets[dest]})
	}
	d.postQ[rank] = my
	d.session.Barrier(rank)

	for _, b := range d.postQ[rank] {
		d.inbox[b.dest] <- fromChunk{from: rank, items: b.items}
	}
	d.session.Barrier(rank)

	received, fromRanks, fromCounts = drain[T](d, rank)
	d.session.Barrier(rank)
	return received, fromRanks, fromCounts
}

func drain[T any](d *Distributor, rank int) (received []T, fromRanks []int, fromCounts []int) {
	for {
		select {
		case c := <-d.inbox[rank]:
			fromRanks = append(fromRanks, c.from)
			fromCounts = append(fromCounts, len(c.items))
			for _, it := range c.items {
				received = append(received, unboxValue[T](it))
			}
		default:
			return received, fromRanks, fromCounts
		}
	}
}

func boxValue[T any](v T) interface{}   { return v }
func unboxValue[T any](v interface{}) T { return v.(T) }

// SharedDistributor builds one Distributor on rank 0 and hands the same
// instance to every rank of the session, the same way NewSubComm shares its
// child Session. Exchange requires all ranks to operate on one shared
// instance; per-rank Distributors would never see each other's posts.
func SharedDistributor(s *Session, rank int) *Distributor {
	var d *Distributor
	if rank == 0 {
		d = NewDistributor(s)
	}
	return Bcast(s, rank, 0, d)
}
