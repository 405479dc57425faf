// Package request implements the per-(source, profile) state machine that
// drives priority-ordered octree traversal, node loading, filtering and
// batching, one step per Update call.
package request

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/octree"
	"github.com/tteke/three-loader/pointbuffer"
	"github.com/tteke/three-loader/profile"
	"github.com/tteke/three-loader/segfilter"
)

// State is one of the named states of the extraction lifecycle.
type State int

const (
	Initial State = iota
	Traversing
	Loading
	Filtering
	Emitting
	Finished
	Cancelled
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Traversing:
		return "traversing"
	case Loading:
		return "loading"
	case Filtering:
		return "filtering"
	case Emitting:
		return "emitting"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// emitThreshold is the pending point count that must be exceeded before
// Update flushes the in-progress result to OnProgress.
const emitThreshold = 100

// Unbounded is the maxDepth value meaning "traverse every level".
const Unbounded uint32 = ^uint32(0)

// Callbacks are invoked by Update as the request progresses. At most one of
// OnFinish/OnCancel fires per request.
type Callbacks struct {
	OnProgress func(data *profile.Data)
	OnFinish   func()
	OnCancel   func()
}

// Source is the subset of OctreeSource a Request needs.
type Source interface {
	Root() octree.Node
	WorldMatrix() mat.Mat4
}

// AttributeSource is implemented by octree.Node values that expose
// non-position attribute columns (color, intensity, classification, ...)
// alongside their position data. Nodes that don't implement it simply have
// no extra attributes copied into accepted output.
type AttributeSource interface {
	Attributes() *pointbuffer.TypedPointBuffer
}

// NewFilterFunc constructs a fresh, single-use SegmentFilter for one node.
// The controller injects its own clock/yield-budget configuration through
// this; segfilter.New with defaults is used when nil is passed to New.
type NewFilterFunc func(width float32) *segfilter.SegmentFilter

// Request drives one OctreeSource traversal for one Profile.
type Request struct {
	ID uuid.UUID

	source Source
	prof   *profile.Profile
	cb     Callbacks
	lru    *octree.NodeLRU
	logger *zap.SugaredLogger

	width              float32
	maxDepth           uint32
	state              State
	queue              *octree.PriorityQueue
	segments           []*profile.Segment
	segmentMileage     []float64
	result             *profile.Data
	pointsServed       int
	highestLevelServed uint32
	cancelRequested    bool

	filterNode    octree.Node
	filterMatrix  mat.Mat4
	filterCursors []*segfilter.SegmentFilter
	filterSegIdx  int

	newFilter NewFilterFunc
}

// New creates a request against source for profile p, bounded to maxDepth
// (Unbounded for no limit). A nil logger defaults to a no-op logger, the
// way controller.New defaults its own logger.
func New(source Source, p *profile.Profile, maxDepth uint32, cb Callbacks, lru *octree.NodeLRU, newFilter NewFilterFunc, logger *zap.SugaredLogger) *Request {
	if newFilter == nil {
		newFilter = func(width float32) *segfilter.SegmentFilter {
			return segfilter.New(segfilter.Options{Width: width})
		}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Request{
		ID:        uuid.New(),
		source:    source,
		prof:      p,
		cb:        cb,
		lru:       lru,
		logger:    logger,
		width:     p.Width(),
		maxDepth:  maxDepth,
		state:     Initial,
		queue:     octree.NewPriorityQueue(),
		newFilter: newFilter,
	}
}

func (r *Request) State() State { return r.state }
func (r *Request) PointsServed() int { return r.pointsServed }
func (r *Request) HighestLevelServed() uint32 { return r.highestLevelServed }

// Cancel immediately stops the request: the queue is dropped, OnCancel
// fires exactly once, and further Update calls are no-ops. Calling it again
// once the request has already finished or cancelled is a no-op.
func (r *Request) Cancel() {
	if r.state == Finished || r.state == Cancelled {
		return
	}
	r.queue.Clear()
	r.state = Cancelled
	if r.cb.OnCancel != nil {
		r.cb.OnCancel()
	}
}

// FinishLevelThenCancel lets nodes already queued at a level no deeper than
// HighestLevelServed drain normally, discards deeper nodes on pop, and
// calls OnFinish (not OnCancel) once the queue empties.
func (r *Request) FinishLevelThenCancel() {
	if r.state == Finished || r.state == Cancelled {
		return
	}
	r.maxDepth = r.highestLevelServed
	r.cancelRequested = true
}

// Update performs exactly one step of the state machine. Callers drive
// progress by calling it repeatedly; a node is "promoted to filtering" on
// the call where State() transitions from Traversing/Loading to Filtering,
// and a filter yield (needing another tick) is signalled by State()
// remaining Filtering across a call. A controller enforcing
// maxNodesPerUpdate and a per-tick time budget observes these transitions
// rather than needing any extra return value here.
func (r *Request) Update() {
	switch r.state {
	case Initial:
		segments, err := r.prof.DeriveSegments()
		if err != nil {
			r.state = Cancelled
			if r.cb.OnCancel != nil {
				r.cb.OnCancel()
			}
			return
		}
		r.segments = segments
		r.segmentMileage = cumulativeMileage(segments)
		r.result = freshData(segments)
		r.queue.PushRoot(r.source.Root())
		r.state = Traversing
	case Traversing, Loading:
		r.stepPop()
	case Filtering:
		r.stepFilter()
	case Emitting:
		r.emit()
		r.state = Traversing
	case Finished, Cancelled:
		// no-op
	}
}

func cumulativeMileage(segments []*profile.Segment) []float64 {
	out := make([]float64, len(segments))
	for i := 1; i < len(segments); i++ {
		out[i] = out[i-1] + float64(segments[i-1].Length)
	}
	return out
}

func freshData(segments []*profile.Segment) *profile.Data {
	out := make([]*profile.Segment, len(segments))
	for i, s := range segments {
		clone := *s
		clone.Points = pointbuffer.New(0)
		out[i] = &clone
	}
	return &profile.Data{Segments: out, Box: mat.NewEmptyBox3()}
}

func (r *Request) stepPop() {
	node, weight, ok := r.queue.Pop()
	if !ok {
		r.finalize()
		return
	}

	if r.maxDepth != Unbounded && node.Level() > r.maxDepth {
		return
	}
	if !node.Loaded() {
		node.Load()
		r.queue.Push(node, weight)
		r.state = Loading
		return
	}

	r.lru.Touch(node)
	if node.Level() > r.highestLevelServed {
		r.highestLevelServed = node.Level()
	}
	if !r.cancelRequested {
		r.expand(node)
	}
	r.beginFiltering(node)
}

func (r *Request) expand(node octree.Node) {
	stepSize := node.HierarchyStepSize()
	atMaterializedLevel := node.Level() == 0 || (stepSize != 0 && node.Level()%stepSize == 0 && node.HasChildren())
	if !atMaterializedLevel {
		return
	}
	worldMatrix := r.source.WorldMatrix()
	for _, child := range node.Children() {
		if child == nil {
			continue
		}
		bsWorld := child.BoundingSphere().Transformed(worldMatrix)
		if !anySegmentIntersects(r.segments, bsWorld, r.width) {
			continue
		}
		r.queue.Push(child, bsWorld.Radius)
	}
}

// anySegmentIntersects implements the traversal intersection test: the
// closest point on the segment line to bsWorld.Center must be strictly
// within bsWorld.Radius + width for the node to be kept. A node exactly
// tangent to the corridor is rejected.
func anySegmentIntersects(segments []*profile.Segment, bsWorld mat.Sphere, width float32) bool {
	for _, s := range segments {
		d := distancePointToSegment(bsWorld.Center, s.StartG, s.EndG)
		if d < bsWorld.Radius+width {
			return true
		}
	}
	return false
}

func distancePointToSegment(p, a, b mat.Vec3) float32 {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return p.DistanceTo(a)
	}
	t := p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := a.Add(ab.Mul(t))
	return p.DistanceTo(closest)
}

func (r *Request) beginFiltering(node octree.Node) {
	min := node.BoundingBox().Min
	r.filterNode = node
	r.filterMatrix = r.source.WorldMatrix().MulAffine(mat.Translate(min[0], min[1], min[2]))
	r.filterCursors = make([]*segfilter.SegmentFilter, len(r.segments))
	r.filterSegIdx = 0
	r.state = Filtering
}

func (r *Request) stepFilter() {
	for r.filterSegIdx < len(r.segments) {
		segment := r.segments[r.filterSegIdx]
		resultSeg := r.result.Segments[r.filterSegIdx]

		cursor := r.filterCursors[r.filterSegIdx]
		if cursor == nil {
			cursor = r.newFilter(r.width)
			r.filterCursors[r.filterSegIdx] = cursor
		}

		batch, done, err := cursor.Accept(r.filterNode, r.filterMatrix, segment, segment.Side, r.segmentMileage[r.filterSegIdx])
		if err != nil {
			r.logger.Warnw("skipping node, filter error", "request", r.ID, "level", r.filterNode.Level(), "error", err)
			// Filter-local errors (e.g. EmptyGeometry): skip the rest of
			// this node entirely per propagation policy.
			r.filterSegIdx = len(r.segments)
			r.state = Emitting
			return
		}
		r.applyBatch(resultSeg, r.filterNode, batch)
		if !done {
			return
		}
		r.filterSegIdx++
	}
	r.state = Emitting
}

func (r *Request) applyBatch(seg *profile.Segment, node octree.Node, batch segfilter.AcceptedBatch) {
	n := len(batch.Indices)
	if n == 0 {
		return
	}
	addition := pointbuffer.New(n)
	addition.EnsureColumn(pointbuffer.Position)
	addition.EnsureColumn(pointbuffer.Mileage)
	for i := 0; i < n; i++ {
		projected := mat.NewVec3(float32(batch.Mileage[i]), 0, batch.ProjectedPositions[i][2])
		addition.SetPositionAt(i, projected)
		addition.SetMileageAt(i, batch.Mileage[i])
		addition.ExpandBoundingBox(projected)
	}

	var attrSrc *pointbuffer.TypedPointBuffer
	if a, ok := node.(AttributeSource); ok {
		attrSrc = a.Attributes()
	}
	if attrSrc != nil {
		for _, k := range []pointbuffer.Kind{
			pointbuffer.Color, pointbuffer.Intensity, pointbuffer.Classification,
			pointbuffer.ReturnNumber, pointbuffer.NumberOfReturns, pointbuffer.PointSourceID,
		} {
			for i, srcIdx := range batch.Indices {
				addition.CopyElement(k, i, attrSrc, int(srcIdx))
			}
		}
	}

	seg.Points.Append(addition)
	r.pointsServed += n
}

func (r *Request) emit() {
	if r.result.Size() > emitThreshold {
		r.emitNow()
	}
}

func (r *Request) emitNow() {
	if r.cb.OnProgress != nil {
		r.cb.OnProgress(r.result)
	}
	r.result = freshData(r.segments)
}

func (r *Request) finalize() {
	if r.result.Size() > 0 {
		r.emitNow()
	}
	r.state = Finished
	if r.cb.OnFinish != nil {
		r.cb.OnFinish()
	}
}
