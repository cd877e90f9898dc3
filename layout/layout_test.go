package layout

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContext() ParticleContext {
	return ParticleContext{
		AdvectMultiplier: 10,
		TimeDelta:        1.0 / 60.0,
		MaxLifetime:      10,
		BBMin:            PackedFloat3{-1, -2, -3},
		BBMax:            PackedFloat3{1, 2, 3},
		VFieldDim:        PackedInt3{4, 5, 6},
		NumberParticles:  1000,
		SpawnRangeStart:  10,
		SpawnRangeCount:  20,
		SpawnAt:          PackedFloat3{0.5, 0.25, -0.5},
		SpawnAtRadius:    0.25,
	}
}

func TestSizes(t *testing.T) {
	assert.Equal(t, uintptr(32), unsafe.Sizeof(ParticleVertex{}))
	assert.Equal(t, uintptr(12), unsafe.Sizeof(InstanceDescriptor{}))
	assert.Equal(t, uintptr(76), unsafe.Sizeof(ParticleContext{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(AParticle{}))
	assert.Equal(t, uintptr(12), unsafe.Sizeof(PackedFloat3{}))
	assert.Equal(t, uintptr(12), unsafe.Sizeof(PackedInt3{}))
}

func TestContextOffsets(t *testing.T) {
	var c ParticleContext
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"advect_multiplier", unsafe.Offsetof(c.AdvectMultiplier), 0},
		{"time_delta", unsafe.Offsetof(c.TimeDelta), 4},
		{"max_lifetime", unsafe.Offsetof(c.MaxLifetime), 8},
		{"bb_min", unsafe.Offsetof(c.BBMin), 12},
		{"bb_max", unsafe.Offsetof(c.BBMax), 24},
		{"vfield_dim", unsafe.Offsetof(c.VFieldDim), 36},
		{"number_particles", unsafe.Offsetof(c.NumberParticles), 48},
		{"spawn_range_start", unsafe.Offsetof(c.SpawnRangeStart), 52},
		{"spawn_range_count", unsafe.Offsetof(c.SpawnRangeCount), 56},
		{"spawn_at", unsafe.Offsetof(c.SpawnAt), 60},
		{"spawn_at_radius", unsafe.Offsetof(c.SpawnAtRadius), 72},
	}
	for _, o := range offsets {
		assert.Equal(t, o.want, o.got, o.name)
	}

	var v ParticleVertex
	assert.Equal(t, uintptr(12), unsafe.Offsetof(v.Normal))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(v.UV))
}

func TestContextRoundTripMatchesMemory(t *testing.T) {
	c := sampleContext()
	b, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, ParticleContextSize)

	// the encoder must produce exactly what a raw memory copy uploads
	assert.Equal(t, Bytes([]ParticleContext{c}), b)

	var back ParticleContext
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, c, back)

	again, _ := back.MarshalBinary()
	assert.True(t, bytes.Equal(b, again))
}

func TestContextFieldBytes(t *testing.T) {
	c := sampleContext()
	b, _ := c.MarshalBinary()
	assert.Equal(t, float32(10), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, int32(5), int32(binary.LittleEndian.Uint32(b[40:])))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(b[48:]))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(b[72:])))
}

func TestParticlesRoundTrip(t *testing.T) {
	ps := []AParticle{
		{Position: PackedFloat3{1, 2, 3}, Lifetime: 4},
		{Position: PackedFloat3{-1, 0, 0.5}, Lifetime: -0.01},
	}
	b := AppendParticles(nil, ps)
	require.Len(t, b, 2*AParticleSize)
	assert.Equal(t, Bytes(ps), b)

	back, err := DecodeParticles(b)
	require.NoError(t, err)
	assert.Equal(t, ps, back)

	_, err = DecodeParticles(b[:5])
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestVerticesRoundTrip(t *testing.T) {
	vs := []ParticleVertex{
		{Position: PackedFloat3{1, 1, 1}, Normal: PackedFloat3{0, 1, 0}, UV: PackedFloat2{0.5, 0.75}},
		{Position: PackedFloat3{-1, 1, 1}, Normal: PackedFloat3{0, 0, 1}, UV: PackedFloat2{1, 0}},
	}
	b := AppendVertices([]byte{0xff}, vs)
	require.Len(t, b, 1+2*ParticleVertexSize)
	back, err := DecodeVertices(b[1:])
	require.NoError(t, err)
	assert.Equal(t, vs, back)
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := InstanceDescriptor{InstanceCount: 7, InVertexCount: 8, InIndexCount: 36}
	b, err := d.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, Bytes([]InstanceDescriptor{d}), b)

	var back InstanceDescriptor
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, d, back)
	assert.ErrorIs(t, back.UnmarshalBinary(b[:11]), ErrShortBuffer)
}

func TestContextValidate(t *testing.T) {
	good := sampleContext()
	require.NoError(t, good.Validate())

	cases := map[string]func(c *ParticleContext){
		"inverted box":      func(c *ParticleContext) { c.BBMin[1] = 5 },
		"zero dim":          func(c *ParticleContext) { c.VFieldDim[2] = 0 },
		"negative dim":      func(c *ParticleContext) { c.VFieldDim[0] = -1 },
		"range past end":    func(c *ParticleContext) { c.SpawnRangeStart = 990; c.SpawnRangeCount = 11 },
		"range overflow":    func(c *ParticleContext) { c.SpawnRangeStart = math.MaxUint32; c.SpawnRangeCount = 2 },
		"no particles":      func(c *ParticleContext) { c.NumberParticles = 0; c.SpawnRangeStart = 0; c.SpawnRangeCount = 0 },
		"negative dt":       func(c *ParticleContext) { c.TimeDelta = -1 },
		"negative lifetime": func(c *ParticleContext) { c.MaxLifetime = -1 },
		"negative radius":   func(c *ParticleContext) { c.SpawnAtRadius = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := sampleContext()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidContext)
		})
	}

	flat := sampleContext()
	flat.BBMin, flat.BBMax = PackedFloat3{1, 1, 1}, PackedFloat3{1, 1, 1}
	assert.NoError(t, flat.Validate())

	full := sampleContext()
	full.SpawnRangeStart, full.SpawnRangeCount = 0, full.NumberParticles
	assert.NoError(t, full.Validate())
}

func TestNextSpawnRing(t *testing.T) {
	c := sampleContext()
	c.NumberParticles = 25
	c.SpawnRangeStart, c.SpawnRangeCount = 0, 0

	var starts []uint32
	for i := 0; i < 4; i++ {
		c.NextSpawn(10)
		starts = append(starts, c.SpawnRangeStart)
		require.NoError(t, c.Validate())
	}
	// 0..10, 10..20, 20..25 (clamped), wraps to 0
	assert.Equal(t, []uint32{0, 10, 20, 0}, starts)
	assert.Equal(t, uint32(10), c.SpawnRangeCount)

	assert.True(t, c.InSpawnRange(0))
	assert.True(t, c.InSpawnRange(9))
	assert.False(t, c.InSpawnRange(10))

	c.NextSpawn(0)
	assert.Zero(t, c.SpawnRangeCount)
	assert.False(t, c.InSpawnRange(0))
}

func TestSetSpawn(t *testing.T) {
	c := sampleContext()
	c.SetSpawn(mgl32.Vec3{1, 2, 3}, 0.75)
	assert.Equal(t, PackedFloat3{1, 2, 3}, c.SpawnAt)
	assert.Equal(t, float32(0.75), c.SpawnAtRadius)
	assert.Equal(t, 120, c.VelocityFieldLen())
}

func TestParticleAge(t *testing.T) {
	p := AParticle{Lifetime: 0.05}
	assert.True(t, p.Alive())
	p.Age(0.05)
	assert.False(t, p.Alive())
}

func TestDescriptorValidate(t *testing.T) {
	assert.NoError(t, InstanceDescriptor{InstanceCount: 10, InVertexCount: 8, InIndexCount: 36}.Validate())
	assert.ErrorIs(t, InstanceDescriptor{InstanceCount: 1, InVertexCount: 3, InIndexCount: 4}.Validate(), ErrInvalidDescriptor)
	assert.ErrorIs(t, InstanceDescriptor{InstanceCount: 1, InIndexCount: 3}.Validate(), ErrInvalidDescriptor)
	assert.ErrorIs(t, InstanceDescriptor{InstanceCount: math.MaxUint32, InVertexCount: 8, InIndexCount: 36}.Validate(), ErrInvalidDescriptor)

	d := InstanceDescriptor{InstanceCount: 3, InVertexCount: 8, InIndexCount: 36}
	assert.Equal(t, 24, d.OutVertexCount())
	assert.Equal(t, 108, d.OutIndexCount())
}

func TestParticleVertexLayout(t *testing.T) {
	l := ParticleVertexLayout()
	assert.Equal(t, uint64(ParticleVertexSize), l.ArrayStride)
	require.Len(t, l.Attributes, 3)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, l.Attributes[0].Format)
	assert.Equal(t, uint64(0), l.Attributes[0].Offset)
	assert.Equal(t, uint64(12), l.Attributes[1].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, l.Attributes[2].Format)
	assert.Equal(t, uint64(24), l.Attributes[2].Offset)
	assert.Equal(t, uint32(2), l.Attributes[2].ShaderLocation)

	_, err := VertexBufferLayoutOf(3)
	assert.Error(t, err)
}
