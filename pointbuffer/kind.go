// Package pointbuffer implements the growable, columnar per-point attribute
// store shared by every stage of profile extraction: octree nodes may expose
// their non-position attribute columns through it, the request appends
// accepted points into it, and ProjectedEntry batches it for downstream
// consumption.
package pointbuffer

// Kind is one of the closed set of attributes a point can carry. The set is
// closed (unlike PCD's open, header-declared field list) because the profile
// core never needs to round-trip an arbitrary file schema — it only ever
// produces or consumes these specific columns.
type Kind int

const (
	Position Kind = iota
	Color
	Intensity
	Classification
	ReturnNumber
	NumberOfReturns
	PointSourceID
	Mileage
	Indices
)

// ElemType is the scalar encoding of one element of an attribute.
type ElemType int

const (
	Float32 ElemType = iota
	Float64
	Uint8
	Uint16
)

// Size returns the number of bytes one scalar element occupies.
func (e ElemType) Size() int {
	switch e {
	case Float32:
		return 4
	case Float64:
		return 8
	case Uint8:
		return 1
	case Uint16:
		return 2
	default:
		panic("pointbuffer: unknown elem type")
	}
}

// CanonicalStride is the number of elements per point for kind, per §3 of
// the data model: position stride 3, color stride 4, everything else 1.
func (k Kind) CanonicalStride() int {
	if k == Position {
		return 3
	}
	if k == Color {
		return 4
	}
	return 1
}

// CanonicalElemType is the scalar type used to encode kind.
func (k Kind) CanonicalElemType() ElemType {
	switch k {
	case Position:
		return Float32
	case Color, Classification, ReturnNumber, NumberOfReturns, Indices:
		return Uint8
	case Intensity, PointSourceID:
		return Uint16
	case Mileage:
		return Float64
	default:
		panic("pointbuffer: unknown kind")
	}
}

func (k Kind) String() string {
	switch k {
	case Position:
		return "position"
	case Color:
		return "color"
	case Intensity:
		return "intensity"
	case Classification:
		return "classification"
	case ReturnNumber:
		return "returnNumber"
	case NumberOfReturns:
		return "numberOfReturns"
	case PointSourceID:
		return "pointSourceId"
	case Mileage:
		return "mileage"
	case Indices:
		return "indices"
	default:
		return "unknown"
	}
}
