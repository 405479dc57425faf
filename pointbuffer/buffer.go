package pointbuffer

import (
	"encoding/binary"
	"math"

	"github.com/tteke/three-loader/mat"
)

// Column is a typed, fixed-stride byte-packed attribute column. Stride and
// ElemSize are recorded per column rather than derived from Kind so that
// Append can detect two sources disagreeing on elements-per-point for the
// same attribute (§7 StrideMismatch), exactly as if two octree versions
// encoded the same attribute differently.
type Column struct {
	Stride   int
	ElemType ElemType
	Data     []byte
}

func newColumn(k Kind, numPoints int) Column {
	et := k.CanonicalElemType()
	stride := k.CanonicalStride()
	return Column{
		Stride:   stride,
		ElemType: et,
		Data:     make([]byte, numPoints*stride*et.Size()),
	}
}

func (c Column) bytesPerPoint() int {
	return c.Stride * c.ElemType.Size()
}

// TypedPointBuffer is the growable, columnar per-point attribute store of
// §3/§4.1 (C1).
type TypedPointBuffer struct {
	numPoints int
	columns   map[Kind]Column
	bbox      mat.Box3
}

// New returns an empty buffer with numPoints points and no columns. Columns
// are added on demand via EnsureColumn.
func New(numPoints int) *TypedPointBuffer {
	return &TypedPointBuffer{
		numPoints: numPoints,
		columns:   map[Kind]Column{},
		bbox:      mat.NewEmptyBox3(),
	}
}

func (b *TypedPointBuffer) Len() int {
	return b.numPoints
}

// Column returns the raw column for kind, if present.
func (b *TypedPointBuffer) Column(k Kind) (Column, bool) {
	c, ok := b.columns[k]
	return c, ok
}

func (b *TypedPointBuffer) BoundingBox() mat.Box3 {
	return b.bbox
}

// ExpandBoundingBox grows the buffer's bounding box to contain p. Called as
// accepted points are written into a buffer (request.applyBatch,
// controller's batch slicing).
func (b *TypedPointBuffer) ExpandBoundingBox(p mat.Vec3) {
	b.bbox = b.bbox.ExpandByPoint(p)
}

// EnsureColumn allocates a zero-filled column for kind at the buffer's
// canonical stride, if one isn't already present.
func (b *TypedPointBuffer) EnsureColumn(k Kind) {
	if _, ok := b.columns[k]; ok {
		return
	}
	b.columns[k] = newColumn(k, b.numPoints)
}

// PositionAt returns the position of point i. EnsureColumn(Position) must
// have been called.
func (b *TypedPointBuffer) PositionAt(i int) mat.Vec3 {
	c := b.columns[Position]
	off := i * c.bytesPerPoint()
	return mat.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(c.Data[off:])),
		math.Float32frombits(binary.LittleEndian.Uint32(c.Data[off+4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(c.Data[off+8:])),
	}
}

// SetPositionAt writes the position of point i. EnsureColumn(Position) must
// have been called.
func (b *TypedPointBuffer) SetPositionAt(i int, v mat.Vec3) {
	c := b.columns[Position]
	off := i * c.bytesPerPoint()
	binary.LittleEndian.PutUint32(c.Data[off:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(c.Data[off+4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(c.Data[off+8:], math.Float32bits(v[2]))
}

// MileageAt returns the mileage of point i. Mileage is carried at float64
// precision (§7): it accumulates across every segment of a long polyline,
// where float32 would lose meaningful precision.
func (b *TypedPointBuffer) MileageAt(i int) float64 {
	c := b.columns[Mileage]
	off := i * c.bytesPerPoint()
	return math.Float64frombits(binary.LittleEndian.Uint64(c.Data[off:]))
}

// SetMileageAt writes the mileage of point i. EnsureColumn(Mileage) must
// have been called.
func (b *TypedPointBuffer) SetMileageAt(i int, v float64) {
	c := b.columns[Mileage]
	off := i * c.bytesPerPoint()
	binary.LittleEndian.PutUint64(c.Data[off:], math.Float64bits(v))
}

// CopyElement copies the bytesPerPoint(kind) bytes for point srcIndex of
// src's kind column into point i of b's kind column. Used by the request to
// carry attributes the filter does not itself compute (color, intensity,
// classification, returnNumber, numberOfReturns, pointSourceId) from the
// source node's buffer into the accepted output, indexed by the accepted
// index list. No-op if src has no such column.
func (b *TypedPointBuffer) CopyElement(k Kind, i int, src *TypedPointBuffer, srcIndex int) {
	sc, ok := src.columns[k]
	if !ok {
		return
	}
	b.EnsureColumn(k)
	dc := b.columns[k]
	bpp := dc.bytesPerPoint()
	copy(dc.Data[i*bpp:(i+1)*bpp], sc.Data[srcIndex*bpp:(srcIndex+1)*bpp])
}

// Append implements the three-way per-attribute merge of §3: attributes
// present in both sources are concatenated; attributes present only in b are
// zero-extended by other.Len()*stride; attributes present only in other are
// zero-prefixed by b.Len()*stride. Returns *StrideMismatchError if the same
// kind disagrees on stride between the two sources.
func (b *TypedPointBuffer) Append(other *TypedPointBuffer) error {
	seen := map[Kind]struct{}{}
	merged := map[Kind]Column{}

	for k, bc := range b.columns {
		seen[k] = struct{}{}
		oc, ok := other.columns[k]
		if !ok {
			pad := make([]byte, other.numPoints*bc.bytesPerPoint())
			merged[k] = Column{Stride: bc.Stride, ElemType: bc.ElemType, Data: append(append([]byte{}, bc.Data...), pad...)}
			continue
		}
		if bc.Stride != oc.Stride {
			return &StrideMismatchError{Kind: k, Stride1: bc.Stride, Stride2: oc.Stride}
		}
		merged[k] = Column{Stride: bc.Stride, ElemType: bc.ElemType, Data: append(append([]byte{}, bc.Data...), oc.Data...)}
	}
	for k, oc := range other.columns {
		if _, ok := seen[k]; ok {
			continue
		}
		pad := make([]byte, b.numPoints*oc.bytesPerPoint())
		merged[k] = Column{Stride: oc.Stride, ElemType: oc.ElemType, Data: append(pad, oc.Data...)}
	}

	b.columns = merged
	b.numPoints += other.numPoints
	b.bbox = b.bbox.Union(other.bbox)
	return nil
}
