package cavebiome

// SurfaceFragment is a single tile returned by SurfaceMap, covering a
// SurfaceTileSize×SurfaceTileSize footprint in world x/y.
type SurfaceFragment interface {
	// Height returns the surface height at the given world column.
	Height(wx, wy int32) int32
	// Biome returns the surface biome at the given world column.
	Biome(wx, wy int32) Biome
	// Release drops the caller's reference, mirroring BiomeFragment's
	// refcount protocol on the surface side.
	Release()
}

// SurfaceMap is the collaborator that supplies surface tiles so the cave
// biome map can blend into the surface near ground level.
type SurfaceMap interface {
	// FragmentAt returns the surface tile covering (wx, wy) at the given
	// voxel size, with its refcount already incremented for the caller.
	FragmentAt(wx, wy, voxelSize int32) (SurfaceFragment, error)
}

// DefaultSurfaceTileSize is used when a CaveBiomeService is constructed
// without an explicit tile size override. The real value is a property of
// the SurfaceMap collaborator; this default only matters for tests and the
// caveprobe CLI, which use a synthetic SurfaceMap.
const DefaultSurfaceTileSize = 1024

// surfaceBand describes the vertical window, relative to a column's
// surface height, in which the surface biome takes precedence over the
// cave biome map per §4.8.
func surfaceBand(surfaceHeight, voxelSize int32) (lower, upper int32) {
	return surfaceHeight - 32*voxelSize, surfaceHeight + 128 + voxelSize
}

// surfaceOverride reports the surface biome at (wx, wy, wz) if wz falls
// inside the surface band, and whether the override applies at all.
func surfaceOverride(frag SurfaceFragment, wx, wy, wz, voxelSize int32) (b Biome, ok bool) {
	height := frag.Height(wx, wy)
	lower, upper := surfaceBand(height, voxelSize)
	if wz < lower || wz > upper {
		return nil, false
	}
	return frag.Biome(wx, wy), true
}

// surfaceOverrideHeight is the height-returning variant: in addition to
// the override biome, it clamps returnHeight to the distance to the
// nearest exit from the surface band going upward, since
// getBiomeColumnAndSeed only ever extends its search upward in z.
func surfaceOverrideHeight(frag SurfaceFragment, wx, wy, wz, voxelSize, returnHeight int32) (b Biome, clamped int32, ok bool) {
	height := frag.Height(wx, wy)
	lower, upper := surfaceBand(height, voxelSize)
	if wz < lower || wz > upper {
		return nil, 0, false
	}
	remaining := upper - wz
	if remaining < 0 {
		remaining = 0
	}
	if remaining < returnHeight {
		return frag.Biome(wx, wy), remaining, true
	}
	return frag.Biome(wx, wy), returnHeight, true
}

// surfaceTileIndex picks which of the 4 surface tiles (laid out 2x2 around
// a chunk's footprint, indexed 0..3 with x varying fastest) covers world
// column (wx, wy), given the origin of tile 0 and the shared tile size.
func surfaceTileIndex(wx, wy, originX, originY, tileSize int32) int {
	idx := 0
	if wx >= originX+tileSize {
		idx |= 1
	}
	if wy >= originY+tileSize {
		idx |= 2
	}
	return idx
}
