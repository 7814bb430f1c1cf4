package rendezvous

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/mesh"
	"github.com/notargets/xfer/search"
	"github.com/notargets/xfer/xfererr"
)

func TestEngine_Build1D_TwoRanks(t *testing.T) {
	s := comm.NewSession(2)
	box := geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{5, 0, 0})

	found := make([][]uint64, 2)
	srcs := make([][]int, 2)
	err := comm.RunOn(s, func(rank int) error {
		m := mesh.NewManager(1)
		if rank == 0 {
			m.AddBlock(mesh.Line1DMesh(11, 0, 2.5, 0))
		} else {
			m.AddBlock(mesh.Line1DMesh(11, 2.5, 5, 100))
		}
		eng, err := New(s, rank, 1, box)
		if err != nil {
			return err
		}
		if err := eng.Build(m); err != nil {
			return err
		}

		// Every rank searches for a point on each half of the domain; only
		// the rendezvous owner of that location resolves it, so route first.
		pts := []float64{1.25, 3.75}
		dest := eng.ProcsContainingPoints(pts, 2)
		dist := comm.SharedDistributor(s, rank)
		recv, from, counts := comm.Exchange(dist, rank, dest, pts)
		elems, srcProcs := eng.ElementsContainingPoints(recv, len(recv), 1e-9)
		// Echo results back to the asking ranks.
		var backDest []int
		type res struct {
			Elem uint64
			Src  int
		}
		var backItems []res
		pos := 0
		for k, fr := range from {
			for c := 0; c < counts[k]; c++ {
				backDest = append(backDest, fr)
				backItems = append(backItems, res{Elem: elems[pos], Src: srcProcs[pos]})
				pos++
			}
		}
		got, _, _ := comm.Exchange(dist, rank, backDest, backItems)
		for _, g := range got {
			found[rank] = append(found[rank], g.Elem)
			srcs[rank] = append(srcs[rank], g.Src)
		}
		return nil
	})
	assert.NoError(t, err)

	for rank := 0; rank < 2; rank++ {
		assert.Len(t, found[rank], 2)
		for i, elem := range found[rank] {
			assert.NotEqual(t, search.InvalidElement, elem)
			// 1.25 lies in rank 0's mesh (ids 0-9), 3.75 in rank 1's
			// (ids 100-109); source rank follows the id range.
			if elem < 100 {
				assert.Equal(t, 0, srcs[rank][i])
			} else {
				assert.Equal(t, 1, srcs[rank][i])
			}
		}
	}
}

func TestEngine_NilManagerRankParticipates(t *testing.T) {
	s := comm.NewSession(2)
	box := geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{10, 0, 0})

	err := comm.RunOn(s, func(rank int) error {
		var m *mesh.Manager
		if rank == 0 {
			m = mesh.NewManager(1)
			m.AddBlock(mesh.Line1DMesh(11, 0, 10, 0))
		}
		eng, err := New(s, rank, 1, box)
		if err != nil {
			return err
		}
		return eng.Build(m)
	})
	assert.NoError(t, err)
}

func TestEngine_NoSourceElementsIsFatal(t *testing.T) {
	s := comm.NewSession(2)
	box := geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{1, 0, 0})

	errs := make([]error, 2)
	_ = comm.RunOn(s, func(rank int) error {
		eng, err := New(s, rank, 1, box)
		if err != nil {
			return err
		}
		errs[rank] = eng.Build(nil)
		return nil
	})
	for _, err := range errs {
		assert.Error(t, err)
		assert.True(t, xfererr.Is(err, xfererr.Domain))
	}
}

func TestEngine_EmptyBoxIsFatal(t *testing.T) {
	s := comm.NewSession(1)
	_, err := New(s, 0, 1, geometry.EmptyBBox())
	assert.Error(t, err)
	assert.True(t, xfererr.Is(err, xfererr.Domain))
}

func TestEngine_ElementsInGeometry(t *testing.T) {
	s := comm.NewSession(1)
	box := geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{10, 0, 0})

	err := comm.RunOn(s, func(rank int) error {
		m := mesh.NewManager(1)
		m.AddBlock(mesh.Line1DMesh(11, 0, 10, 0))
		eng, err := New(s, rank, 1, box)
		if err != nil {
			return err
		}
		if err := eng.Build(m); err != nil {
			return err
		}

		g := geometry.Box{Gid: 7, Box: geometry.NewBBox([3]float64{2, 0, 0}, [3]float64{5, 0, 0})}

		// allVertices: only elements fully inside [2,5] qualify.
		all := eng.ElementsInGeometry([]geometry.Geometry{g}, 1e-9, true)
		assert.Equal(t, []uint64{2, 3, 4}, all[0])

		// any vertex: elements touching [2,5] qualify too.
		any := eng.ElementsInGeometry([]geometry.Geometry{g}, 1e-9, false)
		assert.Equal(t, []uint64{1, 2, 3, 4, 5}, any[0])
		return nil
	})
	assert.NoError(t, err)
}

func TestEngine_ProcsContainingBoxes(t *testing.T) {
	s := comm.NewSession(2)
	box := geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{10, 0, 0})

	err := comm.RunOn(s, func(rank int) error {
		m := mesh.NewManager(1)
		if rank == 0 {
			m.AddBlock(mesh.Line1DMesh(11, 0, 5, 0))
		} else {
			m.AddBlock(mesh.Line1DMesh(11, 5, 10, 100))
		}
		eng, err := New(s, rank, 1, box)
		if err != nil {
			return err
		}
		if err := eng.Build(m); err != nil {
			return err
		}

		// A box spanning the whole domain touches every rendezvous rank; a
		// single point's dest rank is among its box's dest ranks.
		wide := geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{10, 0, 0})
		procs := eng.ProcsContainingBoxes([]geometry.BBox{wide})
		assert.Len(t, procs, 1)
		assert.ElementsMatch(t, []int{0, 1}, procs[0])

		p := []float64{7.5}
		owner := eng.ProcsContainingPoints(p, 1)[0]
		narrow := geometry.NewBBox([3]float64{7.4, 0, 0}, [3]float64{7.6, 0, 0})
		assert.Contains(t, eng.ProcsContainingBoxes([]geometry.BBox{narrow})[0], owner)
		return nil
	})
	assert.NoError(t, err)
}

func TestEngine_BuildGeometry(t *testing.T) {
	s := comm.NewSession(2)
	box := geometry.NewBBox([3]float64{-3, -3, -3}, [3]float64{3, 3, 3})

	err := comm.RunOn(s, func(rank int) error {
		var geoms []geometry.Geometry
		if rank == 0 {
			geoms = []geometry.Geometry{
				geometry.Box{Gid: 0, Box: geometry.NewBBox([3]float64{-2, -2, -2}, [3]float64{0, 0, 0})},
				geometry.Box{Gid: 1, Box: geometry.NewBBox([3]float64{0, 0, 0}, [3]float64{2, 2, 2})},
			}
		}
		eng, err := New(s, rank, 3, box)
		if err != nil {
			return err
		}
		if err := eng.BuildGeometry(geoms); err != nil {
			return err
		}

		// Route a point to its rendezvous owner, then resolve locally.
		pts := []float64{-1, 0, 1, -1, 0, 1, -1, 0, 1} // (-1,-1,-1), (0,0,0), (1,1,1)
		dest := eng.ProcsContainingPoints(pts, 3)
		dist := comm.SharedDistributor(s, rank)
		recv, _, _ := comm.Exchange(dist, rank, dest, unblock(pts, 3))
		blocked, n := reblock(recv, 3)
		gids, srcProcs := eng.GeometriesContainingPoints(blocked, n, 1e-9)
		for i := range gids {
			assert.NotEqual(t, search.InvalidElement, gids[i])
			assert.Equal(t, 0, srcProcs[i])
		}
		return nil
	})
	assert.NoError(t, err)
}

// unblock converts a blocked coordinate array into per-point records for
// shipment through a Distributor.
func unblock(blocked []float64, dim int) [][3]float64 {
	n := len(blocked) / dim
	out := make([][3]float64, n)
	for i := 0; i < n; i++ {
		for d := 0; d < dim; d++ {
			out[i][d] = blocked[d*n+i]
		}
	}
	return out
}

func reblock(pts [][3]float64, dim int) ([]float64, int) {
	n := len(pts)
	out := make([]float64, dim*n)
	for i, p := range pts {
		for d := 0; d < dim; d++ {
			out[d*n+i] = p[d]
		}
	}
	return out, n
}
