package cavebiome

import "testing"

func TestGridSelectLayer0WhenCloseToCenter(t *testing.T) {
	g, layer := gridSelect([3]int32{0, 0, 0})
	if layer != 0 {
		t.Fatalf("layer = %d, want 0 (exactly on a layer-0 center)", layer)
	}
	if g != ([3]int32{0, 0, 0}) {
		t.Fatalf("g = %v, want {0,0,0}", g)
	}
}

func TestGridSelectLayer1AcrossOctantBoundary(t *testing.T) {
	// r = (64,64,64): nearest layer-0 center is (128,128,128) (since
	// (64+64)&^127 = 128), dist = (-64,-64,-64), tot = 192 > 96, so this must
	// fall on layer 1, at the layer-1 center (64,64,64).
	g, layer := gridSelect([3]int32{64, 64, 64})
	if layer != 1 {
		t.Fatalf("layer = %d, want 1", layer)
	}
	if g != ([3]int32{64, 64, 64}) {
		t.Fatalf("g = %v, want {64,64,64}", g)
	}
}

func TestGridSelectPiecewiseConstantNeighborhood(t *testing.T) {
	base := [3]int32{1000, 1000, 1000}
	g0, l0 := gridSelect(base)
	// A neighborhood of at least 1 voxel unit in each axis should agree,
	// away from the exact octant boundary.
	for _, d := range [][3]int32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-1, 0, 0}, {0, -1, 0}, {0, 0, -1}} {
		p := [3]int32{base[0] + d[0], base[1] + d[1], base[2] + d[2]}
		g, l := gridSelect(p)
		if g != g0 || l != l0 {
			t.Fatalf("gridSelect(%v) = (%v,%d), want (%v,%d)", p, g, l, g0, l0)
		}
	}
}

func TestVerticalExtentContract(t *testing.T) {
	w := [3]int32{1000, 1000, 0}
	voxelSize := int32(1)
	g0, l0, h := verticalExtent(w, voxelSize, 1000)
	if h <= 0 {
		t.Fatalf("verticalExtent height = %d, want > 0", h)
	}
	for k := int32(0); k*voxelSize < h; k++ {
		p := [3]int32{w[0], w[1], w[2] + k*voxelSize}
		g, l := gridSelect(finishRotate(rotateRaw(p)))
		if g != g0 || l != l0 {
			t.Fatalf("point at k=%d left the cell before reported height %d", k, h)
		}
	}
}

func TestVerticalExtentClampedByReturnHeight(t *testing.T) {
	w := [3]int32{1000, 1000, 0}
	_, _, h := verticalExtent(w, 1, 3)
	if h > 3 {
		t.Fatalf("verticalExtent height = %d, exceeds requested bound 3", h)
	}
}
