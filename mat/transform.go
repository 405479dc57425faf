package mat

// Translate returns the affine matrix that translates by (x, y, z). Used to
// re-express an octree node's local-coordinate points in world space:
// worldMatrix.MulAffine(Translate(boundingBox.Min)).
func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}
