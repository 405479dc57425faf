package octree

import (
	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/pointbuffer"
)

// StaticNode is a plain in-memory Node implementation, used by tests and by
// the demo command to build a synthetic octree without any real loader
// behind it. Load on a node with IsLoaded false runs LoadCallback (if set)
// and marks the node loaded; on an already loaded node it is a no-op.
type StaticNode struct {
	NodeLevel     uint32
	Box           mat.Box3
	Sphere        mat.Sphere
	NodeChildren  []Node
	StepSize      uint32
	PositionData  []float32
	IsLoaded      bool
	LoadCallback  func()
	AttributeData *pointbuffer.TypedPointBuffer
}

func (n *StaticNode) Level() uint32 { return n.NodeLevel }
func (n *StaticNode) NumPoints() uint32 { return uint32(len(n.PositionData) / 3) }
func (n *StaticNode) BoundingBox() mat.Box3 { return n.Box }
func (n *StaticNode) BoundingSphere() mat.Sphere { return n.Sphere }
func (n *StaticNode) Children() []Node { return n.NodeChildren }
func (n *StaticNode) HasChildren() bool { return len(n.NodeChildren) > 0 }
func (n *StaticNode) Loaded() bool { return n.IsLoaded }
func (n *StaticNode) HierarchyStepSize() uint32 { return n.StepSize }
func (n *StaticNode) Position() []float32 { return n.PositionData }

// Attributes implements request.AttributeSource. A nil AttributeData is a
// valid "no extra attributes" node; callers check for nil before using it.
func (n *StaticNode) Attributes() *pointbuffer.TypedPointBuffer { return n.AttributeData }

func (n *StaticNode) Load() {
	if n.IsLoaded {
		return
	}
	if n.LoadCallback != nil {
		n.LoadCallback()
	}
	n.IsLoaded = true
}
