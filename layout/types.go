// Package layout defines the memory layout shared between host code and the
// compute kernels. Field order is the wire format: reordering a field silently
// corrupts every buffer uploaded to the device.
//
// The WGSL side of these structs is generated from this file, see package
// schema and cmd/layoutgen.
package layout

import (
	"structs"
	"unsafe"
)

// Uint is the unsigned 32-bit integer used for every count and index field.
type Uint = uint32

// PackedFloat3 is a 3-component float vector with no trailing padding.
type PackedFloat3 [3]float32

// PackedInt3 is a 3-component int vector with no trailing padding.
type PackedInt3 [3]int32

// PackedFloat2 holds a uv pair.
type PackedFloat2 [2]float32

// ParticleVertex is a vertex of the glyph mesh splatted by the pseudo instance
// system. UV stays at full float32 precision, shorts break under non-uniform scaling.
type ParticleVertex struct {
	_        structs.HostLayout
	Position PackedFloat3 `wgsl:"position" ziti:"layout" format:"float3" location:"0"`
	Normal   PackedFloat3 `wgsl:"normal" ziti:"layout" format:"float3" location:"1"`
	UV       PackedFloat2 `wgsl:"uv" ziti:"layout" format:"float2" location:"2"`
}

// InstanceDescriptor describes how many instances to splat and how large the
// template mesh is.
type InstanceDescriptor struct {
	_             structs.HostLayout
	InstanceCount Uint `wgsl:"instance_count"`
	InVertexCount Uint `wgsl:"in_vertex_count"`
	InIndexCount  Uint `wgsl:"in_index_count"`
}

// ParticleContext holds the per-frame parameters of the advection kernel.
type ParticleContext struct {
	_ structs.HostLayout

	// meters per second scalar
	AdvectMultiplier float32 `wgsl:"advect_multiplier"`
	// seconds since last frame
	TimeDelta float32 `wgsl:"time_delta"`
	// seconds a particle lives
	MaxLifetime float32 `wgsl:"max_lifetime"`

	BBMin PackedFloat3 `wgsl:"bb_min"`
	BBMax PackedFloat3 `wgsl:"bb_max"`

	// velocity grid dimensions
	VFieldDim PackedInt3 `wgsl:"vfield_dim"`

	NumberParticles Uint `wgsl:"number_particles"`
	SpawnRangeStart Uint `wgsl:"spawn_range_start"`
	SpawnRangeCount Uint `wgsl:"spawn_range_count"`

	SpawnAt       PackedFloat3 `wgsl:"spawn_at"`
	SpawnAtRadius float32      `wgsl:"spawn_at_radius"`
}

// AParticle is the state of a single particle. Lifetime is in seconds.
type AParticle struct {
	_        structs.HostLayout
	Position PackedFloat3 `wgsl:"position"`
	Lifetime float32      `wgsl:"lifetime"`
}

const (
	ParticleVertexSize     = 32
	InstanceDescriptorSize = 3 * 4
	ParticleContextSize    = (1 + 1 + 1 + 3 + 3 + 3 + 3 + 3 + 1) * 4
	AParticleSize          = 4 * 4

	// InstanceMatrixSize is the stride of one float4x4 instance record.
	InstanceMatrixSize = 16 * 4
)

// Both index expressions must be 0: a size drift makes one of them
// negative or out of range and the build fails.
var (
	_ = [1]struct{}{}[unsafe.Sizeof(ParticleVertex{})-ParticleVertexSize]
	_ = [1]struct{}{}[ParticleVertexSize-unsafe.Sizeof(ParticleVertex{})]

	_ = [1]struct{}{}[unsafe.Sizeof(InstanceDescriptor{})-InstanceDescriptorSize]
	_ = [1]struct{}{}[InstanceDescriptorSize-unsafe.Sizeof(InstanceDescriptor{})]

	_ = [1]struct{}{}[unsafe.Sizeof(ParticleContext{})-ParticleContextSize]
	_ = [1]struct{}{}[ParticleContextSize-unsafe.Sizeof(ParticleContext{})]

	_ = [1]struct{}{}[unsafe.Sizeof(AParticle{})-AParticleSize]
	_ = [1]struct{}{}[AParticleSize-unsafe.Sizeof(AParticle{})]

	_ = [1]struct{}{}[unsafe.Alignof(ParticleContext{})-4]
	_ = [1]struct{}{}[unsafe.Alignof(AParticle{})-4]
)
