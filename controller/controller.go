// Package controller implements the per-viewer coordinator: it debounces
// marker edits, spawns and cancels one extraction request per visible
// point-cloud source, aggregates their progress into per-source batched
// output, and exposes the aggregate projected bounding box a 2D
// cross-section view scales itself to.
package controller

import (
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/octree"
	"github.com/tteke/three-loader/profile"
	"github.com/tteke/three-loader/request"
	"github.com/tteke/three-loader/segfilter"
)

// ErrSourceHidden is never returned to callers; it documents why a source
// is skipped during recompute (pointcloud.visible == false). Skipping a
// hidden source is expected behavior, logged at Debug only.
var ErrSourceHidden = errors.New("controller: source is not visible")

// Sink is the external collaborator that consumes emitted batches; the
// renderer/material system, file parsing, and marker-editing UI are all
// reached only through this interface and PointCloudSource, never
// directly.
type Sink interface {
	Consume(source *PointCloudSource, entry *ProjectedEntry)
}

// PointCloudSource wraps one OctreeSource-like collaborator with the
// visibility flag and in-flight request bookkeeping the controller needs
// per source.
type PointCloudSource struct {
	Source  request.Source
	Visible bool

	activeRequest *request.Request
}

// NewPointCloudSource wraps source, starting visible.
func NewPointCloudSource(source request.Source) *PointCloudSource {
	return &PointCloudSource{Source: source, Visible: true}
}

// Controller is the C7/C8 coordinator.
type Controller struct {
	cfg     Config
	clock   clock.Clock
	logger  *zap.SugaredLogger
	metrics *Metrics
	sink    Sink
	lru     *octree.NodeLRU

	prof                   *profile.Profile
	unsubscribeFromProfile func()

	sources []*PointCloudSource
	entries map[*PointCloudSource]*ProjectedEntry

	gate              *recomputeGate
	totalPointsServed int
	thresholdTripped  bool
	projectedBox      mat.Box3

	events bus
}

// Options configures a new Controller. Zero-value Clock/Logger/Metrics
// default to a real clock, a no-op logger, and metrics registered against
// a fresh, private prometheus registry.
type Options struct {
	Config  Config
	Clock   clock.Clock
	Logger  *zap.SugaredLogger
	Metrics *Metrics
	Sink    Sink
	LRU     *octree.NodeLRU
}

// New returns a controller with no profile and no sources yet attached.
func New(opts Options) *Controller {
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	cfg := opts.Config
	if cfg.Threshold == 0 {
		cfg = DefaultConfig()
	}
	return &Controller{
		cfg:          cfg,
		clock:        c,
		logger:       logger,
		metrics:      metrics,
		sink:         opts.Sink,
		lru:          opts.LRU,
		entries:      map[*PointCloudSource]*ProjectedEntry{},
		gate:         newRecomputeGate(c, cfg.debounceDuration()),
		projectedBox: mat.NewEmptyBox3(),
	}
}

// Subscribe registers fn against the controller's recomputed_segment /
// recompute_finished event stream.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.events.Subscribe(fn)
}

// ProjectedBox returns the current aggregate projected bounding box across
// every source's entry.
func (c *Controller) ProjectedBox() mat.Box3 {
	return c.projectedBox
}

// Entry returns the aggregated output for source, if any progress has been
// emitted for it yet.
func (c *Controller) Entry(source *PointCloudSource) (*ProjectedEntry, bool) {
	e, ok := c.entries[source]
	return e, ok
}

// SetProfile attaches p, subscribing recompute to its mutation events and
// unsubscribing from whatever profile was previously attached. This fixes
// the listener-leakage hazard of resubscribing without a matching
// unsubscribe: SetProfile always detaches the old profile exactly once
// before attaching the new one.
func (c *Controller) SetProfile(p *profile.Profile) {
	if c.unsubscribeFromProfile != nil {
		c.unsubscribeFromProfile()
		c.unsubscribeFromProfile = nil
	}
	c.prof = p
	if p != nil {
		c.unsubscribeFromProfile = p.Subscribe(func(profile.Event) { c.Recompute() })
	}
}

// AddPointCloud registers source for future recomputes.
func (c *Controller) AddPointCloud(source *PointCloudSource) {
	c.sources = append(c.sources, source)
}

// RemovePointCloud cancels source's active request, if any, and drops it
// from future recomputes.
func (c *Controller) RemovePointCloud(source *PointCloudSource) {
	if source.activeRequest != nil {
		source.activeRequest.Cancel()
	}
	delete(c.entries, source)
	for i, s := range c.sources {
		if s == source {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			break
		}
	}
}

// Recompute requests a fresh traversal. It is debounced: calls arriving
// within Config.DebounceMs of the last effective run are dropped, with
// exactly one deferred catch-up run scheduled for when the window closes
// (see recomputeGate).
func (c *Controller) Recompute() {
	if c.gate.Allow() {
		c.recomputeNow()
	}
}

// Update drives one host tick: it first checks whether a deferred recompute
// has become due, then advances every active request by its configured
// per-tick budget.
func (c *Controller) Update() {
	if c.gate.Poll() {
		c.recomputeNow()
	}
	for _, src := range c.sources {
		if src.activeRequest != nil {
			c.driveRequest(src)
		}
	}
}

// FinishLevelThenCancel gracefully winds down every live request: nodes
// already queued at or above the level each request has reached still run
// to completion, deeper nodes are dropped, and OnFinish (not OnCancel)
// fires for each.
func (c *Controller) FinishLevelThenCancel() {
	for _, src := range c.sources {
		if src.activeRequest != nil {
			src.activeRequest.FinishLevelThenCancel()
		}
	}
}

// Reset cancels every live request and clears aggregated output, without
// detaching the profile or sources.
func (c *Controller) Reset() {
	for _, src := range c.sources {
		if src.activeRequest != nil {
			src.activeRequest.Cancel()
			src.activeRequest = nil
		}
	}
	c.entries = map[*PointCloudSource]*ProjectedEntry{}
	c.projectedBox = mat.NewEmptyBox3()
	c.totalPointsServed = 0
	c.thresholdTripped = false
}

func (c *Controller) recomputeNow() {
	if c.prof == nil {
		return
	}
	if _, err := c.prof.DeriveSegments(); err != nil {
		// InvalidProfile: fewer than 2 markers, or width <= 0. No-op, no
		// events, matching the boundary behavior for a degenerate profile.
		return
	}

	for _, src := range c.sources {
		if src.activeRequest != nil {
			src.activeRequest.Cancel()
			src.activeRequest = nil
		}
	}
	c.entries = map[*PointCloudSource]*ProjectedEntry{}
	c.projectedBox = mat.NewEmptyBox3()
	c.totalPointsServed = 0
	c.thresholdTripped = false

	for _, src := range c.sources {
		if !src.Visible {
			c.logger.Debugw("skipping hidden source", "reason", ErrSourceHidden)
			continue
		}
		c.spawnRequest(src)
	}
}

func (c *Controller) spawnRequest(src *PointCloudSource) {
	source := src
	newFilter := func(width float32) *segfilter.SegmentFilter {
		return segfilter.New(segfilter.Options{
			Width:       width,
			Clock:       c.clock,
			YieldBudget: c.cfg.filterYieldBudget(),
		})
	}
	req := request.New(source.Source, c.prof, c.cfg.MaxDepth, request.Callbacks{
		OnProgress: func(data *profile.Data) { c.onProgress(source, data) },
		OnFinish:   func() { c.onFinish(source) },
		OnCancel:   func() { c.onCancel(source) },
	}, c.lru, newFilter, c.logger)

	source.activeRequest = req
	c.metrics.ActiveRequests.Inc()
}

func (c *Controller) onProgress(src *PointCloudSource, data *profile.Data) {
	entry, ok := c.entries[src]
	if !ok {
		entry = NewProjectedEntry(c.cfg.BatchCapacity)
		c.entries[src] = entry
	}

	n := data.Size()
	c.totalPointsServed += n
	c.metrics.PointsServed.Add(float64(n))

	for _, seg := range data.Segments {
		entry.Append(seg.Points)
		c.events.publish(Event{Kind: RecomputedSegment, Segment: seg})
	}
	c.projectedBox = c.projectedBox.Union(entry.ProjectedBox())
	c.events.publish(Event{Kind: RecomputeFinished})

	if c.sink != nil {
		c.sink.Consume(src, entry)
	}

	if !c.thresholdTripped && c.totalPointsServed > c.cfg.Threshold {
		c.thresholdTripped = true
		c.logger.Infow("point threshold exceeded, finishing level then cancelling", "threshold", c.cfg.Threshold, "served", c.totalPointsServed)
		c.FinishLevelThenCancel()
	}
}

func (c *Controller) onFinish(src *PointCloudSource) {
	src.activeRequest = nil
	c.metrics.ActiveRequests.Dec()
}

func (c *Controller) onCancel(src *PointCloudSource) {
	src.activeRequest = nil
	c.metrics.ActiveRequests.Dec()
}

// OrthoCamera is the minimal surface set_scale_from_dimensions orients: an
// external camera whose projection is replaced outright, centered on the
// aggregate projected box.
type OrthoCamera interface {
	SetProjection(proj mat.Mat4)
}

// SetScaleFromDimensions fits a w x h viewport to the current projected
// box: sx = w / Δx, sy = h / Δz of the box, the smaller of the two is taken
// so the whole box remains visible without distortion, and cam (if given)
// is oriented to an orthographic projection centered on the box with
// half-extents (w/(2·scale), h/(2·scale)) for that shared scale.
func (c *Controller) SetScaleFromDimensions(w, h float32, cam OrthoCamera) (scale float32) {
	size := c.projectedBox.Size()
	dx, dz := size[0], size[2]
	var sx, sy float32 = 1, 1
	if dx > 0 {
		sx = w / dx
	}
	if dz > 0 {
		sy = h / dz
	}
	scale = sx
	if sy < scale {
		scale = sy
	}
	if cam == nil {
		return scale
	}

	center := c.projectedBox.Center()
	halfW := w / (2 * scale)
	halfH := h / (2 * scale)
	proj := mat.Orthographic(
		center[0]-halfW, center[0]+halfW,
		center[2]+halfH, center[2]-halfH,
		1, -1,
	)
	cam.SetProjection(proj)
	return scale
}

// driveRequest advances src's active request by one host tick's worth of
// work: at most Config.MaxNodesPerUpdate nodes are promoted to filtering,
// and the tick ends early if the filter yields (needs another tick) or the
// request is waiting on an async node load.
func (c *Controller) driveRequest(src *PointCloudSource) {
	req := src.activeRequest
	promoted := 0
	for {
		prevState := req.State()
		req.Update()
		state := req.State()

		if state == request.Finished || state == request.Cancelled {
			return
		}
		if state == request.Loading {
			return
		}
		if prevState != request.Filtering && state == request.Filtering {
			promoted++
			c.metrics.NodesVisited.Inc()
			continue
		}
		if state == request.Filtering {
			return
		}
		if promoted >= c.cfg.MaxNodesPerUpdate {
			return
		}
	}
}
