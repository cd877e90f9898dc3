package layout

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrInvalidContext    = errors.New("layout: invalid particle context")
	ErrInvalidDescriptor = errors.New("layout: invalid instance descriptor")
)

// Vec3 converts to a mathgl vector.
func (p PackedFloat3) Vec3() mgl32.Vec3 { return mgl32.Vec3(p) }

// Pack converts a mathgl vector to its packed form.
func Pack(v mgl32.Vec3) PackedFloat3 { return PackedFloat3(v) }

// Cells returns the number of grid cells, 0 if any dimension is not positive.
func (d PackedInt3) Cells() int {
	if d[0] <= 0 || d[1] <= 0 || d[2] <= 0 {
		return 0
	}
	return int(d[0]) * int(d[1]) * int(d[2])
}

// Validate checks the invariants the kernel relies on. The producer calls
// it before upload.
func (c *ParticleContext) Validate() error {
	for i := 0; i < 3; i++ {
		if c.BBMin[i] > c.BBMax[i] {
			return fmt.Errorf("%w: bb_min[%d]=%g > bb_max[%d]=%g", ErrInvalidContext, i, c.BBMin[i], i, c.BBMax[i])
		}
		if c.VFieldDim[i] <= 0 {
			return fmt.Errorf("%w: vfield_dim[%d]=%d must be positive", ErrInvalidContext, i, c.VFieldDim[i])
		}
	}
	if c.NumberParticles == 0 {
		return fmt.Errorf("%w: number_particles is 0", ErrInvalidContext)
	}
	if uint64(c.SpawnRangeStart)+uint64(c.SpawnRangeCount) > uint64(c.NumberParticles) {
		return fmt.Errorf("%w: spawn range [%d,+%d) exceeds %d particles",
			ErrInvalidContext, c.SpawnRangeStart, c.SpawnRangeCount, c.NumberParticles)
	}
	if c.TimeDelta < 0 {
		return fmt.Errorf("%w: negative time_delta %g", ErrInvalidContext, c.TimeDelta)
	}
	if c.MaxLifetime < 0 {
		return fmt.Errorf("%w: negative max_lifetime %g", ErrInvalidContext, c.MaxLifetime)
	}
	if c.SpawnAtRadius < 0 {
		return fmt.Errorf("%w: negative spawn_at_radius %g", ErrInvalidContext, c.SpawnAtRadius)
	}
	return nil
}

// VelocityFieldLen is the number of packed float3 cells of the velocity grid.
func (c *ParticleContext) VelocityFieldLen() int { return c.VFieldDim.Cells() }

// Bounds returns the advection box.
func (c *ParticleContext) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return c.BBMin.Vec3(), c.BBMax.Vec3()
}

// SetSpawn moves the spawn sphere.
func (c *ParticleContext) SetSpawn(at mgl32.Vec3, radius float32) {
	c.SpawnAt = Pack(at)
	c.SpawnAtRadius = radius
}

// NextSpawn advances the spawn ring: the new range starts where the previous
// one ended. count is clamped so the range never runs past the buffer end.
func (c *ParticleContext) NextSpawn(count uint32) {
	if c.NumberParticles == 0 {
		c.SpawnRangeStart, c.SpawnRangeCount = 0, 0
		return
	}
	head := uint32((uint64(c.SpawnRangeStart) + uint64(c.SpawnRangeCount)) % uint64(c.NumberParticles))
	c.SpawnRangeStart = head
	c.SpawnRangeCount = min(count, c.NumberParticles-head)
}

// InSpawnRange reports whether particle i is respawned this step.
func (c *ParticleContext) InSpawnRange(i uint32) bool {
	return i >= c.SpawnRangeStart && i-c.SpawnRangeStart < c.SpawnRangeCount
}

// Alive reports whether the particle still has lifetime left.
func (p AParticle) Alive() bool { return p.Lifetime > 0 }

// Age decrements the lifetime by dt.
func (p *AParticle) Age(dt float32) { p.Lifetime -= dt }

// Validate rejects descriptors the splat kernels cannot consume.
func (d InstanceDescriptor) Validate() error {
	if d.InIndexCount%3 != 0 {
		return fmt.Errorf("%w: in_index_count %d is not a triangle list", ErrInvalidDescriptor, d.InIndexCount)
	}
	if d.InstanceCount > 0 && d.InVertexCount == 0 {
		return fmt.Errorf("%w: %d instances of an empty mesh", ErrInvalidDescriptor, d.InstanceCount)
	}
	if uint64(d.InstanceCount)*uint64(d.InVertexCount) > 1<<32-1 {
		return fmt.Errorf("%w: %d instances x %d vertices overflows u32 indices",
			ErrInvalidDescriptor, d.InstanceCount, d.InVertexCount)
	}
	return nil
}

// OutVertexCount is the number of vertices produced by splatting.
func (d InstanceDescriptor) OutVertexCount() int {
	return int(d.InstanceCount) * int(d.InVertexCount)
}

// OutIndexCount is the number of indices produced by splatting.
func (d InstanceDescriptor) OutIndexCount() int {
	return int(d.InstanceCount) * int(d.InIndexCount)
}
