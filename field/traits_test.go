package field

import (
	"testing"

	"github.com/notargets/xfer/comm"
	"github.com/stretchr/testify/assert"
)

func TestBuffer_ZeroAndSet(t *testing.T) {
	b := NewBuffer(2, 3)
	b.Set(0, 0, 1)
	b.Set(0, 1, 2)
	assert.Equal(t, 1.0, b.Get(0, 0))
	assert.Equal(t, 2.0, b.Get(0, 1))
	b.Zero()
	assert.Equal(t, 0.0, b.Get(0, 0))
}

func TestGlobalBBox(t *testing.T) {
	s := comm.NewSession(2)
	boxes := make([]struct{ min, max float64 }, 2)
	err := comm.RunOn(s, func(rank int) error {
		var buf *Buffer
		if rank == 0 {
			buf = NewBufferFrom(1, []float64{0, 1, 2})
		} else {
			buf = NewBufferFrom(1, []float64{5, 6})
		}
		box := GlobalBBox(s, rank, buf)
		boxes[rank] = struct{ min, max float64 }{box.Min[0], box.Max[0]}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, boxes[0].min)
	assert.Equal(t, 6.0, boxes[0].max)
	assert.Equal(t, boxes[0], boxes[1])
}
