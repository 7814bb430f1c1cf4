package comm

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistributor_Exchange(t *testing.T) {
	s := NewSession(3)
	d := NewDistributor(s)

	results := make([][]int, 3)
	fromRanksAll := make([][]int, 3)

	err := RunOn(s, func(rank int) error {
		// Rank 0 sends {1,2} to rank 1 and {3} to rank 2.
		// Rank 1 sends {10} to rank 2.
		// Rank 2 sends nothing.
		var dests []int
		var items []int
		switch rank {
		case 0:
			dests = []int{1, 1, 2}
			items = []int{1, 2, 3}
		case 1:
			dests = []int{2}
			items = []int{10}
		}
		recv, from, _ := Exchange(d, rank, dests, items)
		results[rank] = recv
		fromRanksAll[rank] = from
		return nil
	})
	assert.NoError(t, err)

	assert.Empty(t, results[0])
	sort.Ints(results[1])
	assert.Equal(t, []int{1, 2}, results[1])
	sort.Ints(results[2])
	assert.Equal(t, []int{3, 10}, results[2])
	sort.Ints(fromRanksAll[2])
	assert.Equal(t, []int{0, 1}, fromRanksAll[2])
}

func TestDistributor_ReusedAcrossRounds(t *testing.T) {
	s := NewSession(2)
	d := NewDistributor(s)
	round1 := make([][]int, 2)
	round2 := make([][]string, 2)

	err := RunOn(s, func(rank int) error {
		other := 1 - rank
		r1, _, _ := Exchange(d, rank, []int{other}, []int{rank})
		round1[rank] = r1
		r2, _, _ := Exchange(d, rank, []int{other}, []string{"hello-from-" + itoa(rank)})
		round2[rank] = r2
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []int{1}, round1[0])
	assert.Equal(t, []int{0}, round1[1])
	assert.Equal(t, []string{"hello-from-1"}, round2[0])
	assert.Equal(t, []string{"hello-from-0"}, round2[1])
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	return string(rune('0' + n))
}
