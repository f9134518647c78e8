package cavebiome

// gridOctant is 3·CellSize/4: the Manhattan-distance threshold that carves
// a regular octahedron out of each layer-0 cube cell, inscribed so that the
// octahedron is exactly the Voronoi dual of the offset layer-1 lattice. This
// is what gives the biome boundary its quasi-hexagonal look; the constant
// and the strict '>' comparison below must be preserved exactly or
// interpolation discontinuities stop matching cell boundaries.
const gridOctant = 3 * CellSize / 4

func absI32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func signI32(v int32) int32 {
	if v < 0 {
		return -1
	}
	return 1
}

// nearestLayer0Center returns the center of the layer-0 cell (period
// CellSize, centered on CellSize multiples) nearest r, and the per-axis
// distance from that center to r, which lies in [-CellSize/2, CellSize/2).
func nearestLayer0Center(r [3]int32) (center, dist [3]int32) {
	const half = CellSize / 2
	const mask = int32(CellSize - 1)
	for i := 0; i < 3; i++ {
		center[i] = (r[i] + half) &^ mask
		dist[i] = r[i] - center[i]
	}
	return center, dist
}

// nearestLayer1Center returns the center of the layer-1 cell (period
// CellSize, centered at CellSize/2 mod CellSize, the same points gridSelect
// yields for layer 1) nearest r, and the per-axis distance, which always
// lies in [-CellSize/2, CellSize/2).
func nearestLayer1Center(r [3]int32) (center, dist [3]int32) {
	const half = CellSize / 2
	const mask = int32(CellSize - 1)
	for i := 0; i < 3; i++ {
		center[i] = (r[i] &^ mask) + half
		dist[i] = r[i] - center[i]
	}
	return center, dist
}

// gridSelect implements §4.5's dual-lattice grid selection: given a rotated
// point r, it returns the grid point (cell center) and sub-lattice layer
// (0 or 1) that r belongs to.
func gridSelect(r [3]int32) (g [3]int32, layer int) {
	center, dist := nearestLayer0Center(r)
	tot := absI32(dist[0]) + absI32(dist[1]) + absI32(dist[2])
	if tot > gridOctant {
		for i := 0; i < 3; i++ {
			center[i] += signI32(dist[i]) * (CellSize / 2)
		}
		return center, 1
	}
	return center, 0
}

// fragmentAndCell resolves a rotated grid point g plus layer into the
// FragmentPosition that should hold it and the fragment-local coordinates
// to index with. voxelSize is carried through because it is part of
// FragmentPosition's cache key.
func fragmentAndCell(g [3]int32, voxelSize int32) (pos FragmentPosition, local [3]int32) {
	origin := fragOrigin(g)
	pos = FragmentPosition{X: origin[0], Y: origin[1], Z: origin[2], VoxelSize: voxelSize}
	local = [3]int32{g[0] - origin[0], g[1] - origin[1], g[2] - origin[2]}
	return pos, local
}

// maxVerticalRun is the upper bound on Δz probed by the vertical-extent
// search: ⌈CellSize·√5/2⌉, the diameter of any sub-lattice cell projected
// onto the world z axis. sqrt(5) ≈ 2.2360679..., so CellSize*sqrt5/2 ≈
// 143.11; we keep a constant ceiling to avoid a floating-point sqrt on the
// hot path.
const maxVerticalRun = 144

// verticalExtent implements §4.6: given the world point w, the voxel size,
// and an upper bound returnHeight, it returns the (g, layer) at w and the
// largest h ≤ returnHeight (a multiple of voxelSize) such that every world
// point w+(0,0,k·voxelSize) for 0 ≤ k·voxelSize ≤ h maps to the same
// (g, layer).
func verticalExtent(w [3]int32, voxelSize, returnHeight int32) (g [3]int32, layer int, h int32) {
	raw := rotateRaw(w)
	r0 := finishRotate(raw)
	g0, layer0 := gridSelect(r0)

	bound := returnHeight
	if bound > maxVerticalRun {
		bound = maxVerticalRun
	}
	if voxelSize < 1 {
		voxelSize = 1
	}
	steps := bound / voxelSize

	matches := func(s int32) bool {
		dz := int64(s) * int64(voxelSize)
		cand := [3]int64{raw[0] + rCol2[0]*dz, raw[1] + rCol2[1]*dz, raw[2] + rCol2[2]*dz}
		rc := finishRotate(cand)
		gc, lc := gridSelect(rc)
		return gc == g0 && lc == layer0
	}

	lo, hi := int32(0), steps
	best := int32(0)
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if matches(mid) {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return g0, layer0, best * voxelSize
}
