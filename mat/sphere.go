package mat

// Sphere is a bounding sphere, used to carry an octree node's boundingSphere
// and as the priority-queue weight source (larger radius pops first).
type Sphere struct {
	Center Vec3
	Radius float32
}

// Transformed returns the sphere transformed by an affine matrix. The radius
// is scaled by the length of the matrix's first column (its x-axis scale),
// which is exact for
// similarity transforms (rotation + uniform scale + translation) — the only
// kind of worldMatrix an octree loader produces.
func (s Sphere) Transformed(m Mat4) Sphere {
	scale := Vec3{m[0], m[1], m[2]}.Norm()
	return Sphere{Center: m.TransformAffine(s.Center), Radius: s.Radius * scale}
}
