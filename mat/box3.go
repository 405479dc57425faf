package mat

import "math"

// Box3 is an axis-aligned bounding box. The zero value is not a valid empty
// box for Union purposes; use NewEmptyBox3.
type Box3 struct {
	Min, Max Vec3
}

// NewEmptyBox3 returns a box with inverted bounds, ready to be grown by
// Union without needing a special first-point case.
func NewEmptyBox3() Box3 {
	return Box3{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// IsEmpty reports whether the box has never been grown.
func (b Box3) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// ExpandByPoint grows the box, monotonically, to contain p.
func (b Box3) ExpandByPoint(p Vec3) Box3 {
	out := b
	for i := 0; i < 3; i++ {
		if p[i] < out.Min[i] {
			out.Min[i] = p[i]
		}
		if p[i] > out.Max[i] {
			out.Max[i] = p[i]
		}
	}
	return out
}

// Union returns the monotone union of b and a.
func (b Box3) Union(a Box3) Box3 {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	return b.ExpandByPoint(a.Min).ExpandByPoint(a.Max)
}

func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box3) Size() Vec3 {
	return b.Max.Sub(b.Min)
}
