/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/notargets/xfer/comm"
	"github.com/notargets/xfer/field"
	"github.com/notargets/xfer/geometry"
	"github.com/notargets/xfer/mesh"
	"github.com/notargets/xfer/sdmap"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario [wave1d|cylinders|centroids]",
	Short: "Run a canned end-to-end coupling",
	Long: `Runs one of the demonstration couplings end to end:

  wave1d     two ranks coupled across [0,5], damped iteration to convergence
  cylinders  volume source: four cylinders on rank 0, targets on rank 1
  centroids  quad mesh with one target at every element centroid`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfile(func() error {
			switch args[0] {
			case "wave1d":
				return runWave1D()
			case "cylinders":
				return runCylinders()
			case "centroids":
				return runCentroids()
			default:
				return fmt.Errorf("unknown scenario %q", args[0])
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

// runWave1D couples two ranks across [0,5]; each owns half the domain and
// relaxes its nodal field toward the transferred values until the global
// residual converges.
func runWave1D() error {
	const nNodes = 10
	s := comm.NewSession(2)
	h := 2.5 / float64(nNodes-1)

	return comm.RunOn(s, func(rank int) error {
		xmin := 2.5 * float64(rank)
		idBase := uint64(rank * 100)

		src := mesh.NewManager(1)
		src.AddBlock(mesh.Line1DMesh(nNodes, xmin, xmin+2.5, idBase))

		coords := make([]float64, nNodes)
		for i := range coords {
			coords[i] = xmin + float64(i)*h
		}
		tgt := field.NewBufferFrom(1, coords)

		m := sdmap.New(s, rank, sdmap.Config{Dim: 1, Tol: cfg.Tolerance, StoreMissedPoints: cfg.StoreMissedPoints})
		if err := m.Setup(src, tgt); err != nil {
			return err
		}

		nodal := make([]float64, nNodes)
		for i := range nodal {
			nodal[i] = float64(i)
		}
		eval := func(ids []uint64, blocked []float64) ([]float64, error) {
			out := make([]float64, len(ids))
			for i, id := range ids {
				el := int(id - idBase)
				t := (blocked[i] - (xmin + float64(el)*h)) / h
				out[i] = (1-t)*nodal[el] + t*nodal[el+1]
			}
			return out, nil
		}
		out := field.NewBuffer(1, nNodes)

		for k := 0; k < cfg.MaxIterations; k++ {
			if err := m.Apply(eval, out); err != nil {
				return err
			}
			var l2 float64
			for i := 0; i < nNodes; i++ {
				diff := out.Get(i, 0) - nodal[i]
				nodal[i] += 0.5 * diff
				l2 += diff * diff
			}
			var global float64
			for _, v := range comm.AllGather(s, rank, l2) {
				global += v
			}
			if math.Sqrt(global) < cfg.ConvergenceTol {
				if rank == 0 {
					fmt.Printf("wave1d converged after %d iterations (residual %g)\n", k+1, math.Sqrt(global))
				}
				return nil
			}
		}
		return fmt.Errorf("wave1d did not converge in %d iterations", cfg.MaxIterations)
	})
}

// runCylinders places four cylinder sources on rank 0 and five target
// points (the centers plus a far sentinel) on rank 1.
func runCylinders() error {
	s := comm.NewSession(2)
	centers := [4][3]float64{
		{-1.5, -1.5, 0.25}, {1.5, -1.5, 0.25}, {-1.5, 1.5, 0.25}, {1.5, 1.5, 0.25},
	}

	return comm.RunOn(s, func(rank int) error {
		var geoms []geometry.Geometry
		if rank == 0 {
			for gid, c := range centers {
				geoms = append(geoms, geometry.Cylinder{Gid: gid, Center: c, Axis: [3]float64{0, 0, 1}, Radius: 0.75, Length: 2.5})
			}
		}

		var tgt field.Traits
		var out *field.Buffer
		if rank == 1 {
			coords := make([]float64, 3*5)
			for i, c := range centers {
				for d := 0; d < 3; d++ {
					coords[d*5+i] = c[d]
				}
			}
			for d := 0; d < 3; d++ {
				coords[d*5+4] = float64(math.MaxInt32)
			}
			tgt = field.NewBufferFrom(3, coords)
			out = field.NewBuffer(1, 5)
		}

		m := sdmap.NewVolumeMap(s, rank, sdmap.Config{Dim: 3, Tol: cfg.Tolerance, StoreMissedPoints: true})
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
		if err := m.Apply(eval, out); err != nil {
			return err
		}
		if rank == 1 {
			missed, err := m.GetMissedTargetPoints()
			if err != nil {
				return err
			}
			fmt.Printf("cylinders: target values %v, %d missed\n", out.Blocked(), len(missed))
		}
		return nil
	})
}

// runCentroids builds a quad mesh split across two ranks and places one
// target point at every element centroid.
func runCentroids() error {
	s := comm.NewSession(2)
	const nx, ny = 4, 2

	return comm.RunOn(s, func(rank int) error {
		y0 := 2.0 * float64(rank)
		idBase := uint64(rank * 1000)

		src := mesh.NewManager(2)
		src.AddBlock(mesh.Quad2DMesh(nx, ny, 0, 4, y0, y0+2, idBase))

		ne := nx * ny
		coords := make([]float64, 2*ne)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				e := j*nx + i
				coords[0*ne+e] = float64(i) + 0.5
				coords[1*ne+e] = y0 + float64(j) + 0.5
			}
		}
		tgt := field.NewBufferFrom(2, coords)
		out := field.NewBuffer(1, ne)

		m := sdmap.New(s, rank, sdmap.Config{Dim: 2, Tol: cfg.Tolerance, StoreMissedPoints: true})
		if err := m.Setup(src, tgt); err != nil {
			return err
		}
		eval := func(ids []uint64, blocked []float64) ([]float64, error) {
			vals := make([]float64, len(ids))
			for i, id := range ids {
				vals[i] = float64(id)
			}
			return vals, nil
		}
		if err := m.Apply(eval, out); err != nil {
			return err
		}
		missed, err := m.GetMissedTargetPoints()
		if err != nil {
			return err
		}
		fmt.Printf("centroids: rank %d received %v, %d missed\n", rank, out.Blocked(), len(missed))
		return nil
	})
}
