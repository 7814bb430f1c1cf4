// Package field provides the field-traits façade (dimension, size, blocked
// view) and small field tools (zeroing, global bounding box) the core
// consumes from a user field buffer, most importantly the target
// coordinate field presented at setup time.
package field

import (
	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/geometry"
)

// Traits is the uniform, read-only capability set the core consumes from a
// user field buffer.
type Traits interface {
	Dim() int
	Size() int
	// Blocked returns the blocked buffer: v[d*Size()+i] is component d of
	// entry i.
	Blocked() []float64
}

// Buffer is a simple owned Traits implementation, also used as the mutable
// target-field buffer Apply writes into.
type Buffer struct {
	dim  int
	data []float64
}

// NewBuffer allocates a zeroed blocked buffer of the given dimension and
// entry count.
func NewBuffer(dim, size int) *Buffer {
	return &Buffer{dim: dim, data: make([]float64, dim*size)}
}

// NewBufferFrom wraps an existing blocked slice without copying.
func NewBufferFrom(dim int, data []float64) *Buffer {
	return &Buffer{dim: dim, data: data}
}

func (b *Buffer) Dim() int          { return b.dim }
func (b *Buffer) Size() int         { return len(b.data) / b.dim }
func (b *Buffer) Blocked() []float64 { return b.data }

// Zero fills the buffer with zero, used before every Apply so unmapped
// (missed) target points read as zero.
func (b *Buffer) Zero() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Set writes component d of entry i.
func (b *Buffer) Set(i, d int, v float64) { b.data[d*b.Size()+i] = v }

// Get reads component d of entry i.
func (b *Buffer) Get(i, d int) float64 { return b.data[d*b.Size()+i] }

// GlobalBBox all-reduces a coordinate field's bounding box over the
// session via an axis-wise min/max. t may have Size() == 0 on ranks with
// no local points.
func GlobalBBox(s *comm.Session, rank int, t Traits) geometry.BBox {
	dim := t.Dim()
	local := geometry.FromPoints(t.Blocked(), dim, t.Size())
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
