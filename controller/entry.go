package controller

import (
	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/pointbuffer"
)

// DrawRange is the (start, count) window of a batch's columns that is
// currently populated, the way a GPU draw call would consume it.
type DrawRange struct {
	Start int
	Count int
}

// Batch is one fixed-capacity columnar output chunk. Downstream GPU upload
// prefers many mid-sized contiguous buffers over one giant growing buffer,
// so ProjectedEntry never resizes a batch past its capacity; it starts a
// new one instead.
type Batch struct {
	Capacity  int
	Points    *pointbuffer.TypedPointBuffer
	DrawRange DrawRange
	Box       mat.Box3
	Sphere    mat.Sphere
	finalized bool
}

func newBatch(capacity int) *Batch {
	return &Batch{Capacity: capacity, Points: pointbuffer.New(0), Box: mat.NewEmptyBox3()}
}

func (b *Batch) remaining() int {
	return b.Capacity - b.Points.Len()
}

func (b *Batch) finalize() {
	if b.finalized {
		return
	}
	b.Box = b.Points.BoundingBox()
	b.Sphere = mat.Sphere{Center: b.Box.Center(), Radius: b.Box.Size().Norm() / 2}
	b.DrawRange = DrawRange{Start: 0, Count: b.Points.Len()}
	b.finalized = true
}

// ProjectedEntry is the per-source aggregation of every batch of points a
// ProfileRequest has emitted for that source, plus the aggregate projected
// bounding box across every batch.
type ProjectedEntry struct {
	capacity int
	batches  []*Batch
	box      mat.Box3
}

// NewProjectedEntry returns an entry that allocates batches of the given
// capacity.
func NewProjectedEntry(capacity int) *ProjectedEntry {
	e := &ProjectedEntry{capacity: capacity, box: mat.NewEmptyBox3()}
	e.batches = []*Batch{newBatch(capacity)}
	return e
}

// Batches returns every batch this entry owns, in emission order. The last
// one may still be open (not yet full).
func (e *ProjectedEntry) Batches() []*Batch {
	return e.batches
}

// ProjectedBox returns the union bounding box across every batch.
func (e *ProjectedEntry) ProjectedBox() mat.Box3 {
	return e.box
}

// Append adds points (already projected into cross-section space by the
// filter) to the entry's active batch, spilling into fresh batches as the
// capacity is exhausted.
func (e *ProjectedEntry) Append(points *pointbuffer.TypedPointBuffer) {
	if points.Len() == 0 {
		return
	}
	e.box = e.box.Union(points.BoundingBox())

	offset := 0
	for offset < points.Len() {
		active := e.batches[len(e.batches)-1]
		if active.remaining() == 0 {
			active.finalize()
			active = newBatch(e.capacity)
			e.batches = append(e.batches, active)
		}
		n := active.remaining()
		if remain := points.Len() - offset; n > remain {
			n = remain
		}
		chunk := sliceColumns(points, offset, n)
		if err := active.Points.Append(chunk); err != nil {
			// A stride mismatch here means the upstream filter produced an
			// internally inconsistent buffer; there is nothing a batch can
			// do about that beyond dropping the offending chunk.
			offset += n
			continue
		}
		offset += n
	}
}

// sliceColumns builds a fresh buffer holding points [offset, offset+n) of
// src, preserving every column src carries. TypedPointBuffer doesn't expose
// per-column slicing directly, so this rebuilds one point at a time through
// the typed accessors it does expose, plus a raw-byte copy for the rest.
func sliceColumns(src *pointbuffer.TypedPointBuffer, offset, n int) *pointbuffer.TypedPointBuffer {
	out := pointbuffer.New(n)
	if _, ok := src.Column(pointbuffer.Position); ok {
		out.EnsureColumn(pointbuffer.Position)
		for i := 0; i < n; i++ {
			p := src.PositionAt(offset + i)
			out.SetPositionAt(i, p)
			out.ExpandBoundingBox(p)
		}
	}
	if _, ok := src.Column(pointbuffer.Mileage); ok {
		out.EnsureColumn(pointbuffer.Mileage)
		for i := 0; i < n; i++ {
			out.SetMileageAt(i, src.MileageAt(offset+i))
		}
	}
	for _, k := range []pointbuffer.Kind{
		pointbuffer.Color, pointbuffer.Intensity, pointbuffer.Classification,
		pointbuffer.ReturnNumber, pointbuffer.NumberOfReturns, pointbuffer.PointSourceID,
	} {
		if _, ok := src.Column(k); !ok {
			continue
		}
		for i := 0; i < n; i++ {
			out.CopyElement(k, i, src, offset+i)
		}
	}
	return out
}
