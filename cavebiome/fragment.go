package cavebiome

import (
	"fmt"
	"sync/atomic"
)

const (
	// FragSize is the side length, in rotated-space units, of a BiomeFragment.
	FragSize = 2048
	// CellSize is the side length, in rotated-space units, of a single cell.
	CellSize = 128
	// Grid is the number of cells per axis inside a fragment.
	Grid = FragSize / CellSize
	// CellCount is the total number of cells in a fragment (Grid³).
	CellCount = Grid * Grid * Grid
)

// FragmentPosition identifies a BiomeFragment by the rotated-space origin of
// the FragSize-aligned cube it covers, plus the voxel size the query that
// produced it was made at. VoxelSize is part of the key because two queries
// at different voxel sizes over the same rotated region are not guaranteed
// to want the same cached generation (z-perturbation, see view.go, is
// gated on voxel size).
type FragmentPosition struct {
	X, Y, Z   int32
	VoxelSize int32
}

// fragOrigin floors a rotated-space point to the FragSize-aligned cube that
// contains it. FragSize is a power of two, so a plain bitwise AND against
// the low bits correctly floors negative coordinates too (two's complement
// arithmetic means x &^ (FragSize-1) is x rounded toward -inf to the next
// multiple of FragSize, not toward zero).
func fragOrigin(r [3]int32) [3]int32 {
	const mask = int32(FragSize - 1)
	return [3]int32{r[0] &^ mask, r[1] &^ mask, r[2] &^ mask}
}

// cellIndex returns the flat index of the cell containing the fragment-local
// rotated coordinates (rx, ry, rz), each expected to be in [0, FragSize).
func cellIndex(rx, ry, rz int32) int {
	return int(rx>>7)*Grid*Grid + int(ry>>7)*Grid + int(rz>>7)
}

// BiomeFragment is an immutable cubic region of rotated space, FragSize on a
// side, split into Grid³ cells each carrying one biome per sub-lattice
// layer. Fragments are reference counted and shared between the
// FragmentCache and every BiomeMapView that has resolved them.
type BiomeFragment struct {
	pos      FragmentPosition
	cells    [CellCount][2]Biome
	refCount atomic.Int32
}

// newFragment allocates a fragment with a zero refcount and undefined
// cells. Callers must populate cells (via generators) and set the refcount
// to 1 before the fragment becomes visible to anything outside the
// producing goroutine; see FragmentCache.findOrCreate.
func newFragment(pos FragmentPosition) *BiomeFragment {
	return &BiomeFragment{pos: pos}
}

// Pos returns the fragment's position.
func (f *BiomeFragment) Pos() FragmentPosition { return f.pos }

// Set stores the biome for the cell at fragment-local coordinates
// (rx, ry, rz) and sub-lattice layer. Only called by generators, before the
// fragment's refcount is published; writing to a fragment that already has
// outside references is a bug the type cannot itself detect.
func (f *BiomeFragment) Set(rx, ry, rz int32, layer int, b Biome) {
	f.cells[cellIndex(rx, ry, rz)][layer] = b
}

// cellAt returns the biome stored for (rx, ry, rz, layer) within this
// fragment.
func (f *BiomeFragment) cellAt(rx, ry, rz int32, layer int) Biome {
	return f.cells[cellIndex(rx, ry, rz)][layer]
}

// Acquire adds a reference. The caller must already hold a reference (e.g.
// via a prior Acquire, or by being handed the fragment by the cache); it is
// a bug to Acquire a fragment nobody else is keeping alive, and that bug is
// asserted here rather than silently tolerated.
func (f *BiomeFragment) Acquire() {
	if prior := f.refCount.Add(1) - 1; prior < 1 {
		panic(fmt.Sprintf("cavebiome: Acquire on fragment %+v observed refcount %d before increment", f.pos, prior))
	}
}

// Release removes a reference. On the transition from 1 to 0 the fragment
// is considered destroyed; Go's GC reclaims it once nothing else points to
// it, so there is no explicit free step beyond that transition check, which
// exists purely to catch double-release bugs.
func (f *BiomeFragment) Release() {
	if after := f.refCount.Add(-1); after < 0 {
		panic(fmt.Sprintf("cavebiome: refcount underflow on fragment %+v", f.pos))
	}
}

// RefCount returns the current reference count. Exposed for tests only.
func (f *BiomeFragment) RefCount() int32 { return f.refCount.Load() }
