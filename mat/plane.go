package mat

// Plane is a plane in world space, defined by a point it passes through and
// a (not necessarily normalized) normal vector.
type Plane struct {
	Point  Vec3
	Normal Vec3
}

// NewPlane builds a plane through point with the given normal, normalizing
// the normal so SignedDistance returns true Euclidean distance.
func NewPlane(point, normal Vec3) Plane {
	return Plane{Point: point, Normal: normal.Normalized()}
}

// SignedDistance returns the signed distance from p to the plane, positive on
// the side the normal points to.
func (pl Plane) SignedDistance(p Vec3) float32 {
	return pl.Normal.Dot(p.Sub(pl.Point))
}
