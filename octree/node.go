// Package octree defines the node contract the profile core consumes from
// an out-of-core octree loader, plus the two small collaborators the
// traversal needs of it: a priority queue ordered by node radius, and a
// shared LRU the core only ever touches.
package octree

import "github.com/tteke/three-loader/mat"

// Node is the external contract a loaded-or-loadable octree node must
// satisfy. The profile core never constructs one; it only reads from and
// calls Load on whatever the host's OctreeSource hands it. Node values are
// used as map keys for traversal dedup and LRU identity, so implementations
// should be a pointer type or another naturally comparable type.
type Node interface {
	Level() uint32
	NumPoints() uint32
	BoundingBox() mat.Box3
	BoundingSphere() mat.Sphere
	Children() []Node
	HasChildren() bool
	Loaded() bool
	HierarchyStepSize() uint32

	// Load requests the node's geometry be fetched. It is idempotent and
	// non-blocking: calling it on an already-loading or already-loaded node
	// is a no-op.
	Load()

	// Position returns the node-local position column, length 3*NumPoints(),
	// valid only when Loaded() is true.
	Position() []float32
}
