package request

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/octree"
	"github.com/tteke/three-loader/pointbuffer"
	"github.com/tteke/three-loader/profile"
)

type fakeSource struct {
	root   octree.Node
	matrix mat.Mat4
}

func (s *fakeSource) Root() octree.Node { return s.root }
func (s *fakeSource) WorldMatrix() mat.Mat4 { return s.matrix }

func identity() mat.Mat4 {
	return mat.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

func newProfile(t *testing.T) *profile.Profile {
	p := profile.New(2, 1)
	p.AddMarker(mat.NewVec3(0, 0, 0))
	p.AddMarker(mat.NewVec3(10, 0, 0))
	return p
}

func drain(r *Request, maxSteps int) {
	for i := 0; i < maxSteps; i++ {
		if r.State() == Finished || r.State() == Cancelled {
			return
		}
		r.Update()
	}
}

func TestRequestSingleNodeAllInside(t *testing.T) {
	leaf := &octree.StaticNode{
		IsLoaded:     true,
		NodeLevel:    0,
		Box:          mat.Box3{Min: mat.NewVec3(0, 0, 0), Max: mat.NewVec3(10, 0, 0)},
		Sphere:       mat.Sphere{Center: mat.NewVec3(5, 0, 0), Radius: 6},
		PositionData: []float32{1, 0, 0, 5, 0, 0, 9, 0, 0},
	}
	source := &fakeSource{root: leaf, matrix: identity()}
	p := newProfile(t)

	var progressed []*profile.Data
	finished := false
	req := New(source, p, Unbounded, Callbacks{
		OnProgress: func(d *profile.Data) { progressed = append(progressed, d) },
		OnFinish:   func() { finished = true },
	}, mustLRU(t), nil, nil)

	drain(req, 50)

	if !finished {
		t.Fatalf("expected request to finish, state=%v", req.State())
	}
	if len(progressed) != 1 {
		t.Fatalf("expected exactly one progress batch, got %d", len(progressed))
	}
	if progressed[0].Segments[0].Points.Len() != 3 {
		t.Fatalf("expected 3 accepted points, got %d", progressed[0].Segments[0].Points.Len())
	}
}

func TestRequestCancelIsImmediateAndIdempotent(t *testing.T) {
	leaf := &octree.StaticNode{IsLoaded: true, Sphere: mat.Sphere{Center: mat.NewVec3(5, 0, 0), Radius: 6}}
	source := &fakeSource{root: leaf, matrix: identity()}
	p := newProfile(t)

	cancelCount := 0
	req := New(source, p, Unbounded, Callbacks{
		OnCancel: func() { cancelCount++ },
	}, mustLRU(t), nil, nil)

	req.Update() // Initial -> Traversing
	req.Cancel()
	req.Cancel()

	if cancelCount != 1 {
		t.Fatalf("expected OnCancel exactly once, got %d", cancelCount)
	}
	if req.State() != Cancelled {
		t.Fatalf("expected Cancelled state, got %v", req.State())
	}

	req.Update() // should be a no-op
	if req.State() != Cancelled {
		t.Fatalf("expected state to remain Cancelled after further Update, got %v", req.State())
	}
}

func TestRequestFinishLevelThenCancelCallsOnFinish(t *testing.T) {
	child := &octree.StaticNode{
		IsLoaded:  true,
		NodeLevel: 1,
		Box:       mat.Box3{Min: mat.NewVec3(0, 0, 0), Max: mat.NewVec3(10, 0, 0)},
		Sphere:    mat.Sphere{Center: mat.NewVec3(5, 0, 0), Radius: 6},
	}
	root := &octree.StaticNode{
		IsLoaded:     true,
		NodeLevel:    0,
		StepSize:     1,
		Box:          mat.Box3{Min: mat.NewVec3(0, 0, 0), Max: mat.NewVec3(10, 0, 0)},
		Sphere:       mat.Sphere{Center: mat.NewVec3(5, 0, 0), Radius: 6},
		NodeChildren: []octree.Node{child},
	}
	source := &fakeSource{root: root, matrix: identity()}
	p := newProfile(t)

	finished, cancelled := false, false
	req := New(source, p, Unbounded, Callbacks{
		OnFinish: func() { finished = true },
		OnCancel: func() { cancelled = true },
	}, mustLRU(t), nil, nil)

	req.Update() // Initial -> Traversing
	req.Update() // pop root -> Filtering
	drainOneNode(req)
	req.FinishLevelThenCancel()
	drain(req, 50)

	if !finished {
		t.Fatalf("expected OnFinish to fire")
	}
	if cancelled {
		t.Fatalf("expected OnCancel not to fire")
	}
}

func TestRequestCopiesNonPositionAttributes(t *testing.T) {
	attrs := pointbuffer.New(3)
	attrs.EnsureColumn(pointbuffer.Classification)
	col, _ := attrs.Column(pointbuffer.Classification)
	col.Data[0] = 11
	col.Data[1] = 22
	col.Data[2] = 33

	leaf := &octree.StaticNode{
		IsLoaded:      true,
		Box:           mat.Box3{Min: mat.NewVec3(0, 0, 0), Max: mat.NewVec3(10, 0, 0)},
		Sphere:        mat.Sphere{Center: mat.NewVec3(5, 0, 0), Radius: 6},
		PositionData:  []float32{1, 0, 0, 5, 0, 0, 9, 0, 0},
		AttributeData: attrs,
	}
	source := &fakeSource{root: leaf, matrix: identity()}
	p := newProfile(t)

	var progressed []*profile.Data
	req := New(source, p, Unbounded, Callbacks{
		OnProgress: func(d *profile.Data) { progressed = append(progressed, d) },
	}, mustLRU(t), nil, nil)

	drain(req, 50)

	if len(progressed) != 1 {
		t.Fatalf("expected exactly one progress batch, got %d", len(progressed))
	}
	col2, ok := progressed[0].Segments[0].Points.Column(pointbuffer.Classification)
	if !ok {
		t.Fatalf("expected classification column to survive into the accepted output")
	}
	want := []byte{11, 22, 33}
	for i, w := range want {
		if col2.Data[i] != w {
			t.Errorf("point %d: expected classification %d, got %d", i, w, col2.Data[i])
		}
	}
}

// emptyGeometryNode claims points but exposes no position data, forcing
// segfilter.Accept to return ErrEmptyGeometry.
type emptyGeometryNode struct {
	inner     octree.Node
	numPoints uint32
}

func (n *emptyGeometryNode) Level() uint32 { return n.inner.Level() }
func (n *emptyGeometryNode) NumPoints() uint32 { return n.numPoints }
func (n *emptyGeometryNode) BoundingBox() mat.Box3 { return n.inner.BoundingBox() }
func (n *emptyGeometryNode) BoundingSphere() mat.Sphere { return n.inner.BoundingSphere() }
func (n *emptyGeometryNode) Children() []octree.Node { return n.inner.Children() }
func (n *emptyGeometryNode) HasChildren() bool { return n.inner.HasChildren() }
func (n *emptyGeometryNode) Loaded() bool { return n.inner.Loaded() }
func (n *emptyGeometryNode) HierarchyStepSize() uint32 { return n.inner.HierarchyStepSize() }
func (n *emptyGeometryNode) Load() { n.inner.Load() }
func (n *emptyGeometryNode) Position() []float32 { return nil }

func TestRequestSkipsNodeOnEmptyGeometryAndLogs(t *testing.T) {
	leaf := &emptyGeometryNode{
		inner: &octree.StaticNode{
			IsLoaded: true,
			Box:      mat.Box3{Min: mat.NewVec3(0, 0, 0), Max: mat.NewVec3(10, 0, 0)},
			Sphere:   mat.Sphere{Center: mat.NewVec3(5, 0, 0), Radius: 6},
		},
		numPoints: 5,
	}
	source := &fakeSource{root: leaf, matrix: identity()}
	p := newProfile(t)

	core, logs := observer.New(zap.WarnLevel)
	finished := false
	req := New(source, p, Unbounded, Callbacks{
		OnFinish: func() { finished = true },
	}, mustLRU(t), nil, zap.New(core).Sugar())

	drain(req, 50)

	if !finished {
		t.Fatalf("expected request to finish after skipping the empty-geometry node, state=%v", req.State())
	}
	if req.PointsServed() != 0 {
		t.Fatalf("expected no points served from a node with no position data, got %d", req.PointsServed())
	}
	if logs.FilterMessage("skipping node, filter error").Len() != 1 {
		t.Fatalf("expected the skipped node to be logged once, got %d entries", logs.Len())
	}
}

func drainOneNode(r *Request) {
	for r.State() == Filtering {
		r.Update()
	}
	if r.State() == Emitting {
		r.Update()
	}
}

func mustLRU(t *testing.T) *octree.NodeLRU {
	lru, err := octree.NewSharedNodeLRU(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return lru
}
