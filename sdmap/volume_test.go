package sdmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/field"
	"github.com/notargets/xfer/geometry"
)

// Volume source, cylinders: four cylinders on rank 0 only, five target
// points on rank 1 (the four cylinder centers plus a far-away sentinel).
// The evaluator returns 1+gid per cylinder; the sentinel reads zero and is
// reported missed.
func TestVolumeMap_Cylinders(t *testing.T) {
	s := comm.NewSession(2)
	sentinel := float64(math.MaxInt32)
	centers := [4][3]float64{
		{-1.5, -1.5, 0.25},
		{1.5, -1.5, 0.25},
		{-1.5, 1.5, 0.25},
		{1.5, 1.5, 0.25},
	}

	var out *field.Buffer
	var missed []int

	err := comm.RunOn(s, func(rank int) error {
		var geoms []geometry.Geometry
		if rank == 0 {
			for gid, c := range centers {
				geoms = append(geoms, geometry.Cylinder{
					Gid:    gid,
					Center: c,
					Axis:   [3]float64{0, 0, 1},
					Radius: 0.75,
					Length: 2.5,
				})
			}
		}

		var tgt field.Traits
		var buf *field.Buffer
		if rank == 1 {
			coords := make([]float64, 3*5)
			for i, c := range centers {
				for d := 0; d < 3; d++ {
					coords[d*5+i] = c[d]
				}
			}
			for d := 0; d < 3; d++ {
				coords[d*5+4] = sentinel
			}
			tgt = field.NewBufferFrom(3, coords)
			buf = field.NewBuffer(1, 5)
		}

		m := NewVolumeMap(s, rank, Config{Dim: 3, Tol: 1e-9, StoreMissedPoints: true})
		if err := m.Setup(geoms, tgt); err != nil {
			return err
		}

		eval := func(gids []uint64, blocked []float64) ([]float64, error) {
			vals := make([]float64, len(gids))
			for i, gid := range gids {
				vals[i] = 1 + float64(gid)
			}
			return vals, nil
		}
		if err := m.Apply(eval, buf); err != nil {
			return err
		}
		if rank == 1 {
			out = buf
			var err error
			missed, err = m.GetMissedTargetPoints()
			return err
		}
		return nil
	})
	require.NoError(t, err)

	want := []float64{1, 2, 3, 4, 0}
	for i, w := range want {
		assert.Equal(t, w, out.Get(i, 0))
	}
	assert.Len(t, missed, 1)
	assert.Equal(t, []int{4}, missed)
}

// Point contained by two overlapping boxes resolves to the lower geometry
// id on every run.
func TestVolumeMap_OverlappingGeometries(t *testing.T) {
	s := comm.NewSession(1)

	err := comm.RunOn(s, func(rank int) error {
		geoms := []geometry.Geometry{
			geometry.Box{Gid: 3, Box: geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{2, 2, 2})},
			geometry.Box{Gid: 8, Box: geometry.NewBBox([3]float64{1, 1, 1}, [3]float64{3, 3, 3})},
		}
		tgt := field.NewBufferFrom(3, []float64{1.5, 1.5, 1.5})
		out := field.NewBuffer(1, 1)

		m := NewVolumeMap(s, rank, Config{Dim: 3, Tol: 1e-9})
		if err := m.Setup(geoms, tgt); err != nil {
			return err
		}
		eval := func(gids []uint64, blocked []float64) ([]float64, error) {
			vals := make([]float64, len(gids))
			for i, gid := range gids {
				vals[i] = float64(gid)
			}
			return vals, nil
		}
		if err := m.Apply(eval, out); err != nil {
			return err
		}
		assert.Equal(t, 3.0, out.Get(0, 0))
		return nil
	})
	require.NoError(t, err)
}
