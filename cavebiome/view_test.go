package cavebiome

import "testing"

type fakeSurfaceBiome struct{}

func (fakeSurfaceBiome) Field(name string) (float32, bool) {
	if name == "roughness" {
		return 0, true
	}
	return 0, false
}

type fakeSurfaceFragment struct {
	height    int32
	released  *bool
}

func (f fakeSurfaceFragment) Height(int32, int32) int32 { return f.height }
func (f fakeSurfaceFragment) Biome(int32, int32) Biome  { return fakeSurfaceBiome{} }
func (f fakeSurfaceFragment) Release()                  { *f.released = true }

type fakeSurfaceMap struct {
	height   int32
	released []bool
}

func (m *fakeSurfaceMap) FragmentAt(wx, wy, voxelSize int32) (SurfaceFragment, error) {
	m.released = append(m.released, false)
	return fakeSurfaceFragment{height: m.height, released: &m.released[len(m.released)-1]}, nil
}

func TestSurfaceOverrideAppliesWithinBand(t *testing.T) {
	surf := &fakeSurfaceMap{height: 64}
	svc, cleanup := newTestService(t, 1)
	svc.cfg.Surface = surf
	svc.cfg.SurfaceTileSize = DefaultSurfaceTileSize
	defer cleanup()

	view, err := svc.NewView(FragmentPosition{VoxelSize: 1}, 16, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer view.Close()

	lower, _ := surfaceBand(64, 1)
	// Inside the band: must return the surface biome, not a cave biome.
	// pos.Z == 0 and voxelSize == 1, so the view-relative z equals world z.
	b := view.Biome(0, 0, lower+1)
	if _, ok := b.(fakeSurfaceBiome); !ok {
		t.Fatalf("expected surface biome inside band, got %T", b)
	}

	// Outside the band (below it, but still within the view's bounds):
	// must not be the surface biome.
	b = view.Biome(0, 0, lower-1)
	if _, ok := b.(fakeSurfaceBiome); ok {
		t.Fatal("expected a cave biome outside the surface band")
	}
}

func TestSurfaceFragmentsReleasedOnClose(t *testing.T) {
	surf := &fakeSurfaceMap{height: 10}
	svc, cleanup := newTestService(t, 1)
	svc.cfg.Surface = surf
	svc.cfg.SurfaceTileSize = DefaultSurfaceTileSize
	defer cleanup()

	view, err := svc.NewView(FragmentPosition{VoxelSize: 1}, 16, 32)
	if err != nil {
		t.Fatal(err)
	}
	view.Close()

	for i, r := range surf.released {
		if !r {
			t.Fatalf("surface fragment %d was not released", i)
		}
	}
}

type constNoise struct{ value float32 }

func (n constNoise) Value(int32, int32) float32 { return n.value }
func (constNoise) Close()                        {}

func TestZPerturbationAffectsLowVoxelQueriesOnly(t *testing.T) {
	svc, cleanup := newTestService(t, 1)
	defer cleanup()
	svc.cfg.NewNoise = func(startX, startY, voxelSize, width int32, seed uint64, period int32) FractalNoise {
		return constNoise{value: 1000}
	}

	fine, err := svc.NewView(FragmentPosition{VoxelSize: 1}, 16, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer fine.Close()
	if fine.noise == nil {
		t.Fatal("expected z-perturbation noise to be active for voxelSize < 8")
	}

	coarse, err := svc.NewView(FragmentPosition{VoxelSize: 16}, 16, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer coarse.Close()
	if coarse.noise != nil {
		t.Fatal("expected z-perturbation to be disabled for voxelSize >= 8")
	}
}

// TestInterpolateValueUniformFieldGrid exercises InterpolateValue's full
// path (anchor selection -> fragment/cell lookup -> field lookup ->
// weighted sum) across a grid of world points. checkerGenerator's biomes
// all report roughness == 1, so regardless of which four anchors and
// weights barycentric() picks, the partition-of-unity weights must sum
// the constant field back to 1.
func TestInterpolateValueUniformFieldGrid(t *testing.T) {
	svc, cleanup := newTestService(t, 5)
	defer cleanup()

	view, err := svc.NewView(FragmentPosition{VoxelSize: 1}, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer view.Close()

	const step = 8
	for x := int32(0); x < 64; x += step {
		for y := int32(0); y < 64; y += step {
			for z := int32(0); z < 64; z += step {
				got := view.InterpolateValue(x, y, z, "roughness")
				if diff := got - 1; diff < -1e-5 || diff > 1e-5 {
					t.Fatalf("InterpolateValue(%d,%d,%d) = %f, want 1.0 +/- 1e-5", x, y, z, got)
				}
			}
		}
	}
}

func TestOutOfBoundsQueryPanics(t *testing.T) {
	svc, cleanup := newTestService(t, 1)
	defer cleanup()
	view, err := svc.NewView(FragmentPosition{VoxelSize: 1}, 16, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer view.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-bounds query")
		}
	}()
	view.Biome(0, 0, 16+33)
}
