package cavebiome

// FractalNoise is an opaque 2D noise source consulted only to softly
// perturb the query z coordinate near cell edges. The cave biome core
// treats its range and smoothness as entirely the collaborator's concern.
type FractalNoise interface {
	// Value returns the noise value at the given world column.
	Value(wx, wy int32) float32
	// Close releases any resources held by the noise source.
	Close()
}

// NewFractalNoiseFunc constructs a FractalNoise source. period is the
// spatial period of the noise in world units; seed is mixed by the caller
// from the world seed before being passed in.
type NewFractalNoiseFunc func(startX, startY, voxelSize, width int32, seed uint64, period int32) FractalNoise

// zPerturbPeriod and zPerturbSeedXOR are the fixed parameters the view uses
// when constructing its z-perturbation noise source, per §4.9.
const (
	zPerturbPeriod  = 64
	zPerturbSeedXOR = 0x764923684396
	// zPerturbVoxelThreshold: perturbation is only active for high-detail
	// queries (small voxel sizes); coarse LOD queries skip it entirely.
	zPerturbVoxelThreshold = 8
)
