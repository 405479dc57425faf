package mat

// Mat4 is a 4x4 matrix stored column-major, matching the layout WebGL/OpenGL
// uniform uploads expect: m[4*col+row].
type Mat4 [16]float32

func (m Mat4) Add(a Mat4) Mat4 {
	var out Mat4
	for i := range m {
		out[i] = m[i] + a[i]
	}
	return out
}

func (m Mat4) Mul(a Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[4*k+i] * a[4*j+k]
			}
			out[4*j+i] = sum
		}
	}
	return out
}

// MulAffine multiplies two matrices known to represent affine transforms
// (bottom row [0 0 0 1]), skipping the multiplications whose result is known
// in advance. Equivalent to Mul for affine inputs.
func (m Mat4) MulAffine(a Mat4) Mat4 {
	var out Mat4
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			out[4*j+i] = m[4*0+i]*a[4*j+0] + m[4*1+i]*a[4*j+1] + m[4*2+i]*a[4*j+2]
		}
	}
	for i := 0; i < 3; i++ {
		out[4*3+i] = m[4*0+i]*a[4*3+0] + m[4*1+i]*a[4*3+1] + m[4*2+i]*a[4*3+2] + m[4*3+i]
	}
	out[15] = 1
	return out
}
