package cavebiome

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// fragmentK is the max component magnitude of rotate((1024,1024,1024)),
// used by the fragment-count formula in §4.9. It is computed once from the
// rotation matrix rather than hardcoded, since it is a derived constant.
var fragmentK = func() int32 {
	r := rotate([3]int32{1024, 1024, 1024})
	k := absI32(r[0])
	if a := absI32(r[1]); a > k {
		k = a
	}
	if a := absI32(r[2]); a > k {
		k = a
	}
	return k
}()

// fragCountFor returns the number of fragments needed per rotated axis to
// cover a chunk of the given width plus margin, per §4.9's formula.
func fragCountFor(width, margin int32) int32 {
	num := int64(width+margin+FragSize) * int64(fragmentK)
	div := int64(1024) * int64(FragSize)
	ceil := (num + div - 1) / div
	return 1 + int32(ceil)
}

// BiomeMapView is the query façade bound to a chunk-sized world region. It
// owns references to every fragment and surface fragment it might need to
// answer a query inside its covered region, acquired at construction and
// released exactly once at Close.
type BiomeMapView struct {
	svc    *CaveBiomeService
	pos    FragmentPosition // world-space chunk corner; VoxelSize applies throughout
	width  int32
	margin int32

	fragCount  int32
	fragOrigin [3]int32 // rotated-space origin (floor-aligned to FragSize) of fragments[0][0][0]
	fragments  [][][]*BiomeFragment

	surfaceFragments [4]SurfaceFragment
	surfaceOriginX   int32
	surfaceOriginY   int32
	surfaceTileSize  int32

	noise FractalNoise

	closed bool
}

// worldPoint converts a view-relative coordinate (rx, ry, rz), as accepted
// by the external Biome/Interpolate methods, into absolute world-space
// voxel coordinates.
func (v *BiomeMapView) worldPoint(rx, ry, rz int32) [3]int32 {
	return [3]int32{v.pos.X + rx*v.pos.VoxelSize, v.pos.Y + ry*v.pos.VoxelSize, v.pos.Z + rz*v.pos.VoxelSize}
}

// checkBounds enforces §7's "out-of-bounds query is a program invariant
// violation" rule: callers must stay within [-32, width+32) on every axis.
func (v *BiomeMapView) checkBounds(rx, ry, rz int32) {
	lo, hi := int32(-32), v.width+32
	if rx < lo || rx >= hi || ry < lo || ry >= hi || rz < lo || rz >= hi {
		panic(fmt.Sprintf("cavebiome: query (%d,%d,%d) out of view bounds [%d,%d)", rx, ry, rz, lo, hi))
	}
}

// fragmentFor resolves the rotated grid point g into this view's
// pre-acquired fragment array, panicking if g falls outside the range the
// view prepared for (which would mean the view was under-sized for the
// query — a program bug, not a recoverable error).
func (v *BiomeMapView) fragmentFor(g [3]int32) (*BiomeFragment, [3]int32) {
	origin := fragOrigin(g)
	idx := [3]int32{
		(origin[0] - v.fragOrigin[0]) / FragSize,
		(origin[1] - v.fragOrigin[1]) / FragSize,
		(origin[2] - v.fragOrigin[2]) / FragSize,
	}
	for i := 0; i < 3; i++ {
		if idx[i] < 0 || idx[i] >= v.fragCount {
			panic(fmt.Sprintf("cavebiome: grid point %v fell outside view's prepared fragment range", g))
		}
	}
	f := v.fragments[idx[0]][idx[1]][idx[2]]
	local := [3]int32{g[0] - origin[0], g[1] - origin[1], g[2] - origin[2]}
	return f, local
}

func (v *BiomeMapView) biomeAt(g [3]int32, layer int) Biome {
	f, local := v.fragmentFor(g)
	return f.cellAt(local[0], local[1], local[2], layer)
}

// perturbZ applies the optional z-perturbation, returning the (possibly
// unchanged) z to use for grid selection.
func (v *BiomeMapView) perturbZ(wx, wy, wz int32) int32 {
	if v.noise == nil {
		return wz
	}
	return wz + int32(v.noise.Value(wx, wy))
}

// surfaceFragmentFor returns the surface tile covering (wx, wy), if the
// view holds one.
func (v *BiomeMapView) surfaceFragmentFor(wx, wy int32) SurfaceFragment {
	idx := surfaceTileIndex(wx, wy, v.surfaceOriginX, v.surfaceOriginY, v.surfaceTileSize)
	return v.surfaceFragments[idx]
}

// SurfaceHeight returns the surface height at world column (wx, wy).
func (v *BiomeMapView) SurfaceHeight(wx, wy int32) int32 {
	frag := v.surfaceFragmentFor(wx, wy)
	return frag.Height(wx, wy)
}

// Biome implements the external getBiome entry point: rx, ry, rz are
// view-relative coordinates. It checks the surface override band first,
// then falls back to the rotated-lattice grid selection.
func (v *BiomeMapView) Biome(rx, ry, rz int32) Biome {
	v.checkBounds(rx, ry, rz)
	w := v.worldPoint(rx, ry, rz)
	if frag := v.surfaceFragmentFor(w[0], w[1]); frag != nil {
		if b, ok := surfaceOverride(frag, w[0], w[1], w[2], v.pos.VoxelSize); ok {
			return b
		}
	}
	w[2] = v.perturbZ(w[0], w[1], w[2])
	r := rotate(w)
	g, layer := gridSelect(r)
	return v.biomeAt(g, layer)
}

// seedHash mixes a fragment position, cell index, layer and the world seed
// into a single deterministic 64-bit value. xxhash.Sum64 stands in for the
// spec's self-described "provisional" mixer — any strong, deterministic
// 64-bit hash satisfies the contract.
func seedHash(g [3]int32, layer int, worldSeed uint64) uint64 {
	var buf [20]byte
	putI32 := func(off int, v int32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	putI32(0, g[0])
	putI32(4, g[1])
	putI32(8, g[2])
	putI32(12, int32(layer))
	putI32(16, int32(worldSeed))
	return xxhash.Sum64(buf[:]) ^ worldSeed
}

// BiomeAndSeed implements getBiomeAndSeed: it returns the biome at the
// view-relative coordinate plus a deterministic 64-bit seed derived from
// the resolved grid point, layer, and the world seed.
func (v *BiomeMapView) BiomeAndSeed(rx, ry, rz int32) (Biome, uint64) {
	v.checkBounds(rx, ry, rz)
	w := v.worldPoint(rx, ry, rz)
	if frag := v.surfaceFragmentFor(w[0], w[1]); frag != nil {
		if b, ok := surfaceOverride(frag, w[0], w[1], w[2], v.pos.VoxelSize); ok {
			return b, seedHash([3]int32{w[0], w[1], w[2]}, -1, v.svc.profile.WorldSeed)
		}
	}
	w[2] = v.perturbZ(w[0], w[1], w[2])
	r := rotate(w)
	g, layer := gridSelect(r)
	return v.biomeAt(g, layer), seedHash(g, layer, v.svc.profile.WorldSeed)
}

// BiomeColumnAndSeed implements getBiomeColumnAndSeed: it additionally
// invokes the vertical-extent search (or the surface-band clamp, inside
// the override region) and returns how far up the column the returned
// biome extends.
func (v *BiomeMapView) BiomeColumnAndSeed(rx, ry, rz, returnHeight int32) (Biome, uint64, int32) {
	v.checkBounds(rx, ry, rz)
	w := v.worldPoint(rx, ry, rz)
	if frag := v.surfaceFragmentFor(w[0], w[1]); frag != nil {
		if b, h, ok := surfaceOverrideHeight(frag, w[0], w[1], w[2], v.pos.VoxelSize, returnHeight); ok {
			return b, seedHash([3]int32{w[0], w[1], w[2]}, -1, v.svc.profile.WorldSeed), h
		}
	}
	pw := [3]int32{w[0], w[1], v.perturbZ(w[0], w[1], w[2])}
	g, layer, h := verticalExtent(pw, v.pos.VoxelSize, returnHeight)
	return v.biomeAt(g, layer), seedHash(g, layer, v.svc.profile.WorldSeed), h
}

// RoughBiome implements getRoughBiome: a surface-override check followed by
// plain grid selection, with no z-perturbation — "roughly located" means
// skipping the noise-softened edges used by Biome/BiomeAndSeed.
func (v *BiomeMapView) RoughBiome(rx, ry, rz int32, wantSeed bool) (b Biome, seed uint64) {
	v.checkBounds(rx, ry, rz)
	w := v.worldPoint(rx, ry, rz)
	if frag := v.surfaceFragmentFor(w[0], w[1]); frag != nil {
		if ob, ok := surfaceOverride(frag, w[0], w[1], w[2], v.pos.VoxelSize); ok {
			if wantSeed {
				seed = seedHash(w, -1, v.svc.profile.WorldSeed)
			}
			return ob, seed
		}
	}
	r := rotate(w)
	g, layer := gridSelect(r)
	b = v.biomeAt(g, layer)
	if wantSeed {
		seed = seedHash(g, layer, v.svc.profile.WorldSeed)
	}
	return b, seed
}

// RoughBiomeAndHeight additionally invokes the vertical-extent search, per
// §4.10.
func (v *BiomeMapView) RoughBiomeAndHeight(rx, ry, rz, returnHeight int32, wantSeed bool) (b Biome, seed uint64, h int32) {
	v.checkBounds(rx, ry, rz)
	w := v.worldPoint(rx, ry, rz)
	if frag := v.surfaceFragmentFor(w[0], w[1]); frag != nil {
		if ob, oh, ok := surfaceOverrideHeight(frag, w[0], w[1], w[2], v.pos.VoxelSize, returnHeight); ok {
			if wantSeed {
				seed = seedHash(w, -1, v.svc.profile.WorldSeed)
			}
			return ob, seed, oh
		}
	}
	g, layer, height := verticalExtent(w, v.pos.VoxelSize, returnHeight)
	b = v.biomeAt(g, layer)
	if wantSeed {
		seed = seedHash(g, layer, v.svc.profile.WorldSeed)
	}
	return b, seed, height
}

// InterpolateValue implements interpolateValue: it returns the barycentric
// interpolation, across the four tetrahedral anchors around the
// view-relative coordinate (rx, ry, rz), of the named scalar field.
func (v *BiomeMapView) InterpolateValue(rx, ry, rz int32, field string) float32 {
	v.checkBounds(rx, ry, rz)
	w := v.worldPoint(rx, ry, rz)
	r := rotate(w)
	a := computeAnchors(r)
	l1, l2, l3, l4 := barycentric(a)

	b1 := v.biomeAt(a.r1, 1)
	b2 := v.biomeAt(a.r2, 1)
	b3 := v.biomeAt(a.r3, 0)
	b4 := v.biomeAt(a.r4, 0)

	f1, _ := b1.Field(field)
	f2, _ := b2.Field(field)
	f3, _ := b3.Field(field)
	f4, _ := b4.Field(field)

	return l1*f1 + l2*f2 + l3*f3 + l4*f4
}

// InterpolateMode selects the accumulation behaviour of BulkInterpolateValue.
type InterpolateMode int

// AddToMap is the only mode implemented, matching §4.7's "mode set:
// initially only addToMap".
const AddToMap InterpolateMode = iota

// BulkInterpolateValue evaluates InterpolateValue on a regular 3D grid
// starting at view-relative origin, spaced by voxelSize, and for mode
// AddToMap adds scale*value into each corresponding cell of out (laid out
// x-major: out[((x*ny)+y)*nz+z]).
func (v *BiomeMapView) BulkInterpolateValue(field string, originRX, originRY, originRZ, voxelSize int32, nx, ny, nz int, out []float32, mode InterpolateMode, scale float32) {
	if mode != AddToMap {
		panic("cavebiome: unsupported interpolate mode")
	}
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				rx := originRX + int32(x)*voxelSize
				ry := originRY + int32(y)*voxelSize
				rz := originRZ + int32(z)*voxelSize
				value := v.InterpolateValue(rx, ry, rz, field)
				out[(x*ny+y)*nz+z] += scale * value
			}
		}
	}
}

// Close releases every reference the view holds. It is idempotent: a
// second call is a no-op, since dragonfly-style teardown code commonly runs
// through defer paths that may double-fire on error.
func (v *BiomeMapView) Close() {
	if v.closed {
		return
	}
	v.closed = true
	for _, plane := range v.fragments {
		for _, row := range plane {
			for _, f := range row {
				if f != nil {
					f.Release()
				}
			}
		}
	}
	for _, sf := range v.surfaceFragments {
		if sf != nil {
			sf.Release()
		}
	}
	if v.noise != nil {
		v.noise.Close()
	}
}
