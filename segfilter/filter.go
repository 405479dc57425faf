// Package segfilter implements the per-node, per-segment point acceptance
// and projection pass: for each point in a loaded octree node, it decides
// whether the point falls inside the swept corridor of a profile segment
// and, if so, records its mileage along that segment.
package segfilter

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/octree"
	"github.com/tteke/three-loader/profile"
)

// ErrEmptyGeometry is returned by Accept when a node claims a point count
// but exposes no position data to filter.
var ErrEmptyGeometry = errors.New("segfilter: node claims points but has no position column")

const (
	defaultYieldEveryPoints = 1000
	defaultYieldBudget      = 4 * time.Millisecond
)

// AcceptedBatch is the per-call output of Accept, partial or final:
// indices into the source node, their cumulative mileage, and their
// projected world-space positions (before cross-section projection).
type AcceptedBatch struct {
	Indices            []uint32
	Mileage            []float64
	ProjectedPositions []mat.Vec3
}

// Options configures the cooperative yield behavior and the corridor
// width. Zero Clock/YieldEvery/YieldBudget take the spec defaults
// (1000 points / 4ms).
type Options struct {
	Width       float32
	Clock       clock.Clock
	YieldEvery  int
	YieldBudget time.Duration
}

// SegmentFilter is a resumable cursor over one node's points. It is driven
// by repeated calls to Accept, which return done=false whenever the
// cooperative budget trips, so the caller can re-invoke on a later tick
// rather than block. A filter instance is single-use: construct a fresh one
// per node being filtered.
type SegmentFilter struct {
	width       float32
	clock       clock.Clock
	yieldEvery  int
	yieldBudget time.Duration

	pointIndex int
	checkpoint time.Time
	started    bool
}

// New returns a filter ready to run against a single node.
func New(opts Options) *SegmentFilter {
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	every := opts.YieldEvery
	if every <= 0 {
		every = defaultYieldEveryPoints
	}
	budget := opts.YieldBudget
	if budget <= 0 {
		budget = defaultYieldBudget
	}
	return &SegmentFilter{width: opts.Width, clock: c, yieldEvery: every, yieldBudget: budget}
}

// Accept resumes filtering node's points against segment, starting where
// the previous call left off. matrix is the world matrix to apply to the
// node's local-coordinate positions: worldMatrix * Translate(node bounding
// box min), per the octree's node-local coordinate convention. segmentDir
// is segment.Side, the unit direction along which mileage accumulates.
// totalMileage is the cumulative mileage carried in from prior segments.
//
// Returns done=true once every point in the node has been examined. The
// returned batch holds only the points accepted since the previous call
// (or since construction, on the first call); callers should append it
// into their own accumulator rather than treat it as the full result.
func (f *SegmentFilter) Accept(
	node octree.Node,
	matrix mat.Mat4,
	segment *profile.Segment,
	segmentDir mat.Vec3,
	totalMileage float64,
) (AcceptedBatch, bool, error) {
	numPoints := int(node.NumPoints())
	pos := node.Position()
	if numPoints > 0 && len(pos) == 0 {
		return AcceptedBatch{}, true, ErrEmptyGeometry
	}

	if !f.started {
		f.checkpoint = f.clock.Now()
		f.started = true
	}

	var batch AcceptedBatch
	halfWidth := f.width / 2

	// The point a previous call yielded at is processed before the next
	// budget check, so every call makes progress.
	resumeAt := f.pointIndex
	for ; f.pointIndex < numPoints; f.pointIndex++ {
		if f.pointIndex > resumeAt && f.pointIndex%f.yieldEvery == 0 {
			if f.clock.Now().Sub(f.checkpoint) > f.yieldBudget {
				f.checkpoint = f.clock.Now()
				return batch, false, nil
			}
		}

		local := mat.NewVec3(pos[f.pointIndex*3], pos[f.pointIndex*3+1], pos[f.pointIndex*3+2])
		worldPos := matrix.TransformAffine(local)

		dCut := absF32(segment.CutPlane.SignedDistance(worldPos))
		dHalf := absF32(segment.HalfPlane.SignedDistance(worldPos))

		if dCut >= halfWidth || dHalf >= segment.Length/2 {
			continue
		}

		localMileage := float64(segmentDir.Dot(worldPos.Sub(segment.StartG)))
		batch.Indices = append(batch.Indices, uint32(f.pointIndex))
		batch.Mileage = append(batch.Mileage, totalMileage+localMileage)
		batch.ProjectedPositions = append(batch.ProjectedPositions, worldPos)
	}

	return batch, true, nil
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
