// Package mesh provides the mesh-traits façade (uniform, read-only access
// to a user mesh type's vertices, elements, and connectivity) and the
// Manager/Block types that aggregate blocks into the structure the
// rendezvous engine consumes. Storage is blocked column-major throughout
// so distributor payloads stay contiguous.
package mesh

import "github.com/notargets/xfer/geometry"

// Traits is the uniform, read-only capability set the core consumes from an
// external user mesh type: one topology per Traits value (a mesh with
// several element types supplies one Traits per topology, aggregated by a
// Manager into Blocks).
type Traits interface {
	Dim() int
	VertexIDs() []uint64
	// Coords returns the blocked vertex coordinate array: coord[d*n+i] is
	// axis d of vertex i, n == len(VertexIDs()).
	Coords() []float64
	ElementIDs() []uint64
	VerticesPerElement() int
	// Connectivity returns the blocked element-to-vertex array:
	// conn[i*numElems+e] is the i-th vertex id of element e.
	Connectivity() []uint64
	// Permutation reorders VertexIDs/Coords for callers with a fixed local
	// storage order (e.g. GPU-resident buffers); nil/empty means identity.
	Permutation() []int
	Topology() geometry.Topology
}
