package cavebiome

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pelletier/go-toml"
)

// Generator is a pluggable contributor to a BiomeFragment. Concrete
// generators (the actual noise/rule-based biome pickers) live outside this
// module; the core only needs the contract below to drive them in priority
// order.
type Generator interface {
	// ID identifies the generator for config lookup and logging.
	ID() string
	// Priority controls run order within a GenerationProfile; lower runs
	// first.
	Priority() int
	// Seed is XOR-ed with the world seed to derive this generator's
	// per-fragment seed.
	Seed() uint64
	// Init is called once, with the config subtree registered under this
	// generator's ID (an empty tree if the settings document has none), as
	// the profile's generator list is built.
	Init(cfg *toml.Tree) error
	// Deinit releases any resources acquired by Init. Called once during
	// CaveBiomeService.Deinit.
	Deinit()
	// Generate fills in frag's cells. frag is not yet visible to any other
	// goroutine when this is called.
	Generate(frag *BiomeFragment, seed uint64)
}

// GeneratorRegistry is a priority-ordered catalogue of known Generator
// implementations. Generators are enumerated explicitly by callers via
// Register; the registry never discovers them by reflection or on-disk
// scanning.
type GeneratorRegistry struct {
	mu    sync.Mutex
	byID  map[string]Generator
	order []string // registration order, used as the priority tie-break
}

// NewGeneratorRegistry returns an empty registry.
func NewGeneratorRegistry() *GeneratorRegistry {
	return &GeneratorRegistry{byID: make(map[string]Generator)}
}

// Register adds g to the registry. It returns an error if a generator with
// the same ID is already registered.
func (r *GeneratorRegistry) Register(g Generator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[g.ID()]; ok {
		return fmt.Errorf("cavebiome: generator %q already registered", g.ID())
	}
	r.byID[g.ID()] = g
	r.order = append(r.order, g.ID())
	return nil
}

// configSubtree returns the *toml.Tree registered under key in settings, or
// an empty tree if settings is nil or has no such key — generators must be
// able to run against an absent config section and decide their own
// defaults.
func configSubtree(settings *toml.Tree, key string) *toml.Tree {
	if settings != nil {
		if v := settings.Get(key); v != nil {
			if sub, ok := v.(*toml.Tree); ok {
				return sub
			}
		}
	}
	empty, _ := toml.TreeFromMap(map[string]interface{}{})
	return empty
}

// BuildProfileList calls Init on every registered generator with its config
// subtree from settings, then returns the generators sorted by ascending
// Priority. Ties are broken by registration order, which is stable and
// deterministic per ID across runs, satisfying the ordering guarantee the
// core makes without mandating any particular cross-ID tie-break.
func (r *GeneratorRegistry) BuildProfileList(settings *toml.Tree) ([]Generator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Generator, 0, len(r.order))
	for _, id := range r.order {
		g := r.byID[id]
		if err := g.Init(configSubtree(settings, id)); err != nil {
			return nil, fmt.Errorf("cavebiome: init generator %q: %w", id, err)
		}
		list = append(list, g)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority() < list[j].Priority()
	})
	return list, nil
}

// Deinit calls Deinit on every registered generator.
func (r *GeneratorRegistry) Deinit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		r.byID[id].Deinit()
	}
}
