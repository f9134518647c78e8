// Package refgen provides a single deterministic reference generator used by
// the caveprobe CLI. Concrete, production-quality biome
// generators are explicitly out of scope for the cave biome core (see
// cavebiome.Generator); this is scaffolding, not a generator meant to ship
// in a real world.
package refgen

import (
	"github.com/pelletier/go-toml"
	"github.com/voxelforge/cavebiome/cavebiome"
)

// indexedBiome is a minimal cavebiome.Biome exposing only the "roughness"
// and "index" fields, enough to drive the caveprobe CLI without a real
// biome palette.
type indexedBiome struct {
	index     int32
	roughness float32
}

func (b indexedBiome) Field(name string) (float32, bool) {
	switch name {
	case "index":
		return float32(b.index), true
	case "roughness":
		return b.roughness, true
	default:
		return 0, false
	}
}

// Checkerboard assigns biome index (cellX + 3*cellY + 7*cellZ) mod Palette
// to every cell, evaluated on global rotated-space cell coordinates, so the
// boundary pattern is stable across fragment edges. It is grounded on
// pmgen.Generator.pickBiome's cheap coordinate-hash style of biome
// selection, simplified to a formula whose output is easy to predict in
// tests.
type Checkerboard struct {
	Palette int32
}

func (Checkerboard) ID() string   { return "checkerboard" }
func (Checkerboard) Priority() int { return 0 }
func (Checkerboard) Seed() uint64 { return 0 }

func (Checkerboard) Init(*toml.Tree) error { return nil }
func (Checkerboard) Deinit()               {}

func (c Checkerboard) Generate(frag *cavebiome.BiomeFragment, _ uint64) {
	pos := frag.Pos()
	baseX, baseY, baseZ := pos.X/cavebiome.CellSize, pos.Y/cavebiome.CellSize, pos.Z/cavebiome.CellSize
	palette := c.Palette
	if palette <= 0 {
		palette = 4
	}
	for lx := int32(0); lx < cavebiome.Grid; lx++ {
		for ly := int32(0); ly < cavebiome.Grid; ly++ {
			for lz := int32(0); lz < cavebiome.Grid; lz++ {
				idx := ((baseX+lx)+3*(baseY+ly)+7*(baseZ+lz))%palette
				if idx < 0 {
					idx += palette
				}
				b := indexedBiome{index: idx, roughness: float32(idx) / float32(palette)}
				for layer := 0; layer < 2; layer++ {
					frag.Set(lx*cavebiome.CellSize, ly*cavebiome.CellSize, lz*cavebiome.CellSize, layer, b)
				}
			}
		}
	}
}
