package cavebiome

// Shift is the fixed-point fractional bit count used by the rotation
// matrices. All rotation arithmetic happens in Q(32-Shift).Shift fixed point
// so that results are bit-identical across platforms and Go versions.
const Shift = 30

// scale is floor(2^Shift / 25); it is the magnitude unit from which the
// rotation matrix below is built.
const scale = int64(1) << Shift / 25

// rotationMatrix and rotationMatrixT are R and its transpose Rᵀ. The rows of
// R/2^Shift form an orthonormal basis to within fixed-point rounding, so Rᵀ
// inverts R before the final floor. Each application floors its result, so
// mapping a triple through one matrix and back does not in general return
// the original triple: components can come back up to one unit lower
// (e.g. (1,2,3) -> (2,0,2) -> (0,1,2)).
var rotationMatrix = [3][3]int64{
	{20 * scale, 0, 15 * scale},
	{9 * scale, 20 * scale, -12 * scale},
	{-12 * scale, 15 * scale, 16 * scale},
}

var rotationMatrixT = [3][3]int64{
	{20 * scale, 9 * scale, -12 * scale},
	{0, 20 * scale, 15 * scale},
	{15 * scale, -12 * scale, 16 * scale},
}

// rCol2 is the third column of R: the direction preRotated moves when the
// world z coordinate is incremented by one unit. Used by the vertical-extent
// search in grid.go, which needs the derivative of rotate() with respect to
// world z without re-deriving the whole matrix product each step.
var rCol2 = [3]int64{rotationMatrix[0][2], rotationMatrix[1][2], rotationMatrix[2][2]}

// applyMatrix computes floor((m · v) / 2^Shift) component-wise, using
// 64-bit signed arithmetic for the dot products and an arithmetic right
// shift (which rounds toward negative infinity, i.e. floor, for two's
// complement integers) to apply the fixed-point scale.
func applyMatrix(m [3][3]int64, v [3]int32) [3]int32 {
	vi := [3]int64{int64(v[0]), int64(v[1]), int64(v[2])}
	var out [3]int32
	for i := 0; i < 3; i++ {
		dot := m[i][0]*vi[0] + m[i][1]*vi[1] + m[i][2]*vi[2]
		out[i] = int32(dot >> Shift)
	}
	return out
}

// rotate maps a world-space coordinate into rotated lattice space.
func rotate(v [3]int32) [3]int32 {
	return applyMatrix(rotationMatrix, v)
}

// rotateInverse maps a rotated lattice coordinate back into world space by
// applying Rᵀ with the same floor as rotate. It is not an exact inverse of
// rotate on integer triples; see rotationMatrix.
func rotateInverse(v [3]int32) [3]int32 {
	return applyMatrix(rotationMatrixT, v)
}

// rotateRaw computes R·v in fixed point without the final >>Shift, i.e. the
// unshifted dot products. getGridPointAndHeight uses this to cheaply derive
// how the rotated point moves as the world z coordinate is perturbed,
// without re-running the full rotate() for every probed height.
func rotateRaw(v [3]int32) [3]int64 {
	vi := [3]int64{int64(v[0]), int64(v[1]), int64(v[2])}
	var out [3]int64
	for i := 0; i < 3; i++ {
		out[i] = rotationMatrix[i][0]*vi[0] + rotationMatrix[i][1]*vi[1] + rotationMatrix[i][2]*vi[2]
	}
	return out
}

// finishRotate applies the final >>Shift truncation to a raw (unshifted)
// rotated triple, as produced by rotateRaw plus any z-derivative offset.
func finishRotate(raw [3]int64) [3]int32 {
	var out [3]int32
	for i := 0; i < 3; i++ {
		out[i] = int32(raw[i] >> Shift)
	}
	return out
}
