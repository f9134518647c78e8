package cavebiome

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
)

// GenerationProfile bundles the world seed and the ordered list of
// generators a CaveBiomeService runs. It is expected to be created before
// CaveBiomeService.Init and destroyed after Deinit.
type GenerationProfile struct {
	WorldSeed  uint64
	Generators []Generator
}

// Config controls a CaveBiomeService's collaborators and tunables. Surface
// and NewNoise may be left nil: a nil Surface disables the surface-override
// check entirely, and a nil NewNoise (or a VoxelSize ≥ zPerturbVoxelThreshold
// on every view) disables z-perturbation.
type Config struct {
	Surface         SurfaceMap
	SurfaceTileSize int32
	NewNoise        NewFractalNoiseFunc
	Log             *slog.Logger
}

// CaveBiomeService owns the generator registry, the fragment cache, and the
// active GenerationProfile. It replaces the source program's process-wide
// globals: construct one at world start, Deinit it at world stop, and pass
// it through to every BiomeMapView.
type CaveBiomeService struct {
	id       uuid.UUID
	log      *slog.Logger
	cfg      Config
	registry *GeneratorRegistry
	cache    *FragmentCache
	profile  *GenerationProfile
}

// NewCaveBiomeService constructs a service with an empty generator registry
// and an empty cache. Generators must be registered (RegisterGenerator)
// before Init is called.
func NewCaveBiomeService(cfg Config) *CaveBiomeService {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.SurfaceTileSize == 0 {
		cfg.SurfaceTileSize = DefaultSurfaceTileSize
	}
	return &CaveBiomeService{
		id:       uuid.New(),
		log:      log.With("subsystem", "cavebiome"),
		cfg:      cfg,
		registry: NewGeneratorRegistry(),
		cache:    NewFragmentCache(),
	}
}

// RegisterGenerator adds g to the service's GeneratorRegistry. Equivalent
// to the source program's initGenerators step, except generators are
// enumerated explicitly by the caller rather than discovered.
func (s *CaveBiomeService) RegisterGenerator(g Generator) error {
	return s.registry.Register(g)
}

// Init builds the generator profile list from settings and stores profile
// as the active GenerationProfile. The cache starts empty.
func (s *CaveBiomeService) Init(worldSeed uint64, settings *toml.Tree) error {
	if s.profile != nil {
		return errors.New("cavebiome: service already initialised")
	}
	gens, err := s.registry.BuildProfileList(settings)
	if err != nil {
		return err
	}
	s.profile = &GenerationProfile{WorldSeed: worldSeed, Generators: gens}
	s.log.Info("cave biome service initialised", "instance", s.id, "generators", len(gens))
	return nil
}

// Deinit clears the cache, releasing every slot's reference (fragments
// with no outside references are destroyed immediately; others are
// destroyed when their last view ends), and deinitialises every registered
// generator.
func (s *CaveBiomeService) Deinit() {
	s.cache.clear()
	s.registry.Deinit()
	s.profile = nil
	s.log.Info("cave biome service deinitialised", "instance", s.id)
}

// produceFragment allocates and fully generates a fragment for pos: every
// generator in the active profile runs in priority order, each fed
// profile.WorldSeed XOR generator.Seed(). The fragment's refcount is set to
// 1 (the cache's own reference) only after generation completes.
func (s *CaveBiomeService) produceFragment(pos FragmentPosition) *BiomeFragment {
	if s.profile == nil {
		panic("cavebiome: produceFragment called before Init")
	}
	frag := newFragment(pos)
	for _, g := range s.profile.Generators {
		g.Generate(frag, s.profile.WorldSeed^g.Seed())
	}
	frag.refCount.Store(1)
	return frag
}

// resolveFragment fetches (or generates) the fragment at pos from the
// cache, with an extra reference acquired on behalf of the caller.
func (s *CaveBiomeService) resolveFragment(pos FragmentPosition) *BiomeFragment {
	return s.cache.findOrCreate(pos, s.produceFragment, func(f *BiomeFragment) {
		f.Acquire()
	})
}

// NewView constructs a BiomeMapView covering [pos, pos+width) plus margin
// in every axis, acquiring every fragment (and surface fragment) it might
// need to answer a query inside that range.
func (s *CaveBiomeService) NewView(pos FragmentPosition, width, margin int32) (*BiomeMapView, error) {
	if s.profile == nil {
		return nil, errors.New("cavebiome: NewView called before Init")
	}

	n := fragCountFor(width, margin)
	worldOrigin := [3]int32{pos.X, pos.Y, pos.Z}
	rOrigin := fragOrigin(rotate(worldOrigin))
	half := (n / 2) * FragSize
	base := [3]int32{rOrigin[0] - half, rOrigin[1] - half, rOrigin[2] - half}

	fragments := make([][][]*BiomeFragment, n)
	for x := int32(0); x < n; x++ {
		fragments[x] = make([][]*BiomeFragment, n)
		for y := int32(0); y < n; y++ {
			fragments[x][y] = make([]*BiomeFragment, n)
			for z := int32(0); z < n; z++ {
				fp := FragmentPosition{
					X:         base[0] + x*FragSize,
					Y:         base[1] + y*FragSize,
					Z:         base[2] + z*FragSize,
					VoxelSize: pos.VoxelSize,
				}
				fragments[x][y][z] = s.resolveFragment(fp)
			}
		}
	}

	v := &BiomeMapView{
		svc:        s,
		pos:        pos,
		width:      width,
		margin:     margin,
		fragCount:  n,
		fragOrigin: base,
		fragments:  fragments,
	}

	if s.cfg.Surface != nil {
		tile := s.cfg.SurfaceTileSize
		originX := (pos.X &^ (tile - 1))
		originY := (pos.Y &^ (tile - 1))
		v.surfaceOriginX, v.surfaceOriginY, v.surfaceTileSize = originX, originY, tile
		for i := 0; i < 4; i++ {
			fx := originX
			if i&1 != 0 {
				fx += tile
			}
			fy := originY
			if i&2 != 0 {
				fy += tile
			}
			sf, err := s.cfg.Surface.FragmentAt(fx, fy, pos.VoxelSize)
			if err != nil {
				v.Close()
				return nil, fmt.Errorf("cavebiome: surface fragment %d: %w", i, err)
			}
			v.surfaceFragments[i] = sf
		}
	}

	if s.cfg.NewNoise != nil && pos.VoxelSize < zPerturbVoxelThreshold {
		seed := s.profile.WorldSeed ^ uint64(zPerturbSeedXOR)
		v.noise = s.cfg.NewNoise(pos.X, pos.Y, pos.VoxelSize, width, seed, zPerturbPeriod)
	}

	return v, nil
}
