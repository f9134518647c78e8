package cavebiome

// argMaxStrictGreater returns the axis index of the largest |d[i]|, keeping
// the first axis on ties (replacement requires strictly greater than the
// current maximum). Used for anchor 3 (the second layer-0 center).
func argMaxStrictGreater(d [3]int32) int {
	best := 0
	bestAbs := absI32(d[0])
	for i := 1; i < 3; i++ {
		if a := absI32(d[i]); a > bestAbs {
			best, bestAbs = i, a
		}
	}
	return best
}

// argMaxGreaterEqual returns the axis index of the largest |d[i]|, keeping
// the last axis on ties (replacement allows equality). Used for anchor 1
// (the second layer-1 center). The asymmetry with argMaxStrictGreater is
// deliberate: it keeps the layer-0 and layer-1 anchor axes from collapsing
// onto the same axis at a tie, which would degenerate the tetrahedron.
func argMaxGreaterEqual(d [3]int32) int {
	best := 0
	bestAbs := absI32(d[0])
	for i := 1; i < 3; i++ {
		if a := absI32(d[i]); a >= bestAbs {
			best, bestAbs = i, a
		}
	}
	return best
}

// anchors holds the four lattice points (and the layer each is drawn from)
// that interpolateValue barycentrically blends between.
type anchors struct {
	r1, r2, r3, r4 [3]int32 // r1,r2 layer 1; r3,r4 layer 0
	d              [3]int32 // r - r4
}

// computeAnchors derives the four tetrahedral anchor points for a rotated
// query point r, per §4.7.
func computeAnchors(r [3]int32) anchors {
	c0, d0 := nearestLayer0Center(r)
	c1, d1 := nearestLayer1Center(r)

	r4 := c0
	r3 := c0
	a0 := argMaxStrictGreater(d0)
	if d0[a0] >= 0 {
		r3[a0] += CellSize
	} else {
		r3[a0] -= CellSize
	}

	r2 := c1
	r1 := c1
	a1 := argMaxGreaterEqual(d1)
	if d1[a1] >= 0 {
		r1[a1] += CellSize
	} else {
		r1[a1] -= CellSize
	}

	return anchors{r1: r1, r2: r2, r3: r3, r4: r4, d: [3]int32{r[0] - r4[0], r[1] - r4[1], r[2] - r4[2]}}
}

// mat3i64 is a 3x3 matrix of int64 columns, used to hold
// [r1-r4 | r2-r4 | r3-r4] exactly — components are small (multiples of
// CellSize), so int64 products never overflow.
type mat3i64 [3][3]int64 // mat3i64[row][col]

func sub(a, b [3]int32) [3]int64 {
	return [3]int64{int64(a[0]) - int64(b[0]), int64(a[1]) - int64(b[1]), int64(a[2]) - int64(b[2])}
}

func buildMatrix(a anchors) mat3i64 {
	col1 := sub(a.r1, a.r4)
	col2 := sub(a.r2, a.r4)
	col3 := sub(a.r3, a.r4)
	var m mat3i64
	for row := 0; row < 3; row++ {
		m[row][0] = col1[row]
		m[row][1] = col2[row]
		m[row][2] = col3[row]
	}
	return m
}

// det3 returns the determinant of m.
func det3(m mat3i64) int64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// adj3 returns the adjugate (transpose of the cofactor matrix) of m,
// computed exactly in int64.
func adj3(m mat3i64) mat3i64 {
	cof := func(r0, r1, c0, c1 int) int64 {
		return m[r0][c0]*m[r1][c1] - m[r0][c1]*m[r1][c0]
	}
	var a mat3i64
	a[0][0] = cof(1, 2, 1, 2)
	a[0][1] = -cof(0, 2, 1, 2)
	a[0][2] = cof(0, 1, 1, 2)
	a[1][0] = -cof(1, 2, 0, 2)
	a[1][1] = cof(0, 2, 0, 2)
	a[1][2] = -cof(0, 1, 0, 2)
	a[2][0] = cof(1, 2, 0, 1)
	a[2][1] = -cof(0, 2, 0, 1)
	a[2][2] = cof(0, 1, 0, 1)
	return a
}

// barycentric returns (λ1, λ2, λ3, λ4) for query offset d against the
// tetrahedron formed by a. The single floating-point division happens once,
// via 1/det computed as float32, matching §4.7 step 7.
func barycentric(a anchors) (l1, l2, l3, l4 float32) {
	m := buildMatrix(a)
	adj := adj3(m)
	det := det3(m)
	invDet := float32(1) / float32(det)

	d := [3]int64{int64(a.d[0]), int64(a.d[1]), int64(a.d[2])}
	dot := func(row [3]int64) int64 { return row[0]*d[0] + row[1]*d[1] + row[2]*d[2] }

	l1 = float32(dot(adj[0])) * invDet
	l2 = float32(dot(adj[1])) * invDet
	l3 = float32(dot(adj[2])) * invDet
	l4 = 1 - l1 - l2 - l3
	return
}
