// Package profile implements the polyline-plus-width geometry that defines
// the swept corridor a SegmentFilter tests points against, and the typed
// event bus a controller subscribes to in order to recompute on edit.
package profile

import (
	"errors"

	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/pointbuffer"
)

// ErrInvalidProfile is returned by DeriveSegments when the profile has fewer
// than two markers or a non-positive width. Callers treat this as a no-op,
// not a fatal condition.
var ErrInvalidProfile = errors.New("profile: invalid profile")

// ErrIndexOutOfRange is returned by MoveMarker/RemoveMarker for an
// out-of-bounds marker index.
var ErrIndexOutOfRange = errors.New("profile: marker index out of range")

// Segment is the derived per-segment geometry between two consecutive
// markers, recomputed whenever the profile mutates.
type Segment struct {
	Start, End     mat.Vec3
	StartG, EndG   mat.Vec3
	Side, Forward  mat.Vec3
	CutPlane       mat.Plane
	HalfPlane      mat.Plane
	Length         float32
	Points         *pointbuffer.TypedPointBuffer
}

// Profile is an ordered polyline of markers with a width and a fixed
// height. Height is carried for shape-compatibility with downstream
// consumers; the filter never reads it.
type Profile struct {
	markers []mat.Vec3
	width   float32
	height  float32
	bus     Bus
}

// New returns an empty profile with the given width and height.
func New(width, height float32) *Profile {
	return &Profile{width: width, height: height}
}

func (p *Profile) Width() float32 { return p.width }
func (p *Profile) Height() float32 { return p.height }

// Markers returns a copy of the marker list.
func (p *Profile) Markers() []mat.Vec3 {
	out := make([]mat.Vec3, len(p.markers))
	copy(out, p.markers)
	return out
}

// Subscribe registers fn against this profile's event bus.
func (p *Profile) Subscribe(fn func(Event)) (unsubscribe func()) {
	return p.bus.Subscribe(fn)
}

// AddMarker appends a marker and publishes exactly one MarkerAdded event.
// Earlier revisions of the source this spec is based on followed an
// add-then-move call chain that fired a spurious MarkerMoved right after;
// that is deliberately not reproduced here.
func (p *Profile) AddMarker(v mat.Vec3) {
	p.markers = append(p.markers, v)
	p.bus.publish(Event{Kind: MarkerAdded, Index: len(p.markers) - 1})
}

// MoveMarker relocates marker i and publishes MarkerMoved.
func (p *Profile) MoveMarker(i int, v mat.Vec3) error {
	if i < 0 || i >= len(p.markers) {
		return ErrIndexOutOfRange
	}
	p.markers[i] = v
	p.bus.publish(Event{Kind: MarkerMoved, Index: i})
	return nil
}

// RemoveMarker deletes marker i and publishes MarkerRemoved.
func (p *Profile) RemoveMarker(i int) error {
	if i < 0 || i >= len(p.markers) {
		return ErrIndexOutOfRange
	}
	p.markers = append(p.markers[:i], p.markers[i+1:]...)
	p.bus.publish(Event{Kind: MarkerRemoved, Index: i})
	return nil
}

// SetWidth updates the corridor width and publishes WidthChanged.
// Precondition: w > 0. Callers that violate it get ErrInvalidProfile.
func (p *Profile) SetWidth(w float32) error {
	if w <= 0 {
		return ErrInvalidProfile
	}
	p.width = w
	p.bus.publish(Event{Kind: WidthChanged, Index: -1})
	return nil
}

// DeriveSegments recomputes the n-1 per-segment geometries from the current
// marker list. Returns ErrInvalidProfile if fewer than two markers or a
// non-positive width.
func (p *Profile) DeriveSegments() ([]*Segment, error) {
	if len(p.markers) < 2 || p.width <= 0 {
		return nil, ErrInvalidProfile
	}
	segments := make([]*Segment, 0, len(p.markers)-1)
	up := mat.NewVec3(0, 0, 1)
	for i := 0; i < len(p.markers)-1; i++ {
		start := p.markers[i]
		end := p.markers[i+1]
		startG := mat.NewVec3(start[0], start[1], 0)
		endG := mat.NewVec3(end[0], end[1], 0)

		side := endG.Sub(startG).Normalized()
		forward := side.Cross(up).Normalized()
		length := startG.DistanceTo(endG)

		mid := startG.Add(endG).Mul(0.5)

		segments = append(segments, &Segment{
			Start:     start,
			End:       end,
			StartG:    startG,
			EndG:      endG,
			Side:      side,
			Forward:   forward,
			CutPlane:  mat.NewPlane(startG, forward),
			HalfPlane: mat.NewPlane(mid, side),
			Length:    length,
			Points:    pointbuffer.New(0),
		})
	}
	return segments, nil
}

// Data is a snapshot of derived segments plus their aggregate bounding box,
// one per emission from a request.
type Data struct {
	Segments []*Segment
	Box      mat.Box3
}

// NewData builds an empty Data for profile p's current shape (one empty
// segment per current pair of markers), ready to receive filter output.
func NewData(p *Profile) (*Data, error) {
	segments, err := p.DeriveSegments()
	if err != nil {
		return nil, err
	}
	return &Data{Segments: segments, Box: mat.NewEmptyBox3()}, nil
}

// Size is the total number of points across every segment's buffer.
func (d *Data) Size() int {
	n := 0
	for _, s := range d.Segments {
		n += s.Points.Len()
	}
	return n
}
