// Package partition builds the auxiliary rendezvous decomposition: a
// spatial partition over the shared-domain box that assigns every point
// and every bounding box to a rendezvous rank. The geometric strategies
// (CRB, Grid) cover arbitrary point clouds with no connectivity at all;
// Metis balances an element adjacency graph when one is available.
package partition

import "github.com/notargets/xfer/geometry"

// Partitioner is the spatial partition the rendezvous engine queries.
type Partitioner interface {
	// PointDestinationProc returns the single rank owning point p.
	PointDestinationProc(p []float64) int
	// BoxDestinationProcs returns every rank whose region overlaps box
	// (closed intervals: a box straddling a split lists every leaf it
	// touches).
	BoxDestinationProcs(box geometry.BBox) []int
}

// pointThreshold below which the CRB sampler has too little data to balance
// leaves meaningfully and the implementation falls back to a regular grid.
const pointThreshold = 8

// New builds a Partitioner over box for numRanks ranks, fed by blocked
// source coordinates (dim*numPoints, column-major). When numPoints is below
// pointThreshold (including zero — source mesh absent everywhere), it
// builds a Grid instead of a CRB.
func New(box geometry.BBox, dim int, blockedCoords []float64, numPoints, numRanks int) Partitioner {
	if numPoints < pointThreshold {
		return NewGrid(box, dim, numRanks)
	}
	return NewCRB(box, dim, blockedCoords, numPoints, numRanks)
}
