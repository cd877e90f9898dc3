package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// ErrShortBuffer is returned when a byte slice is too small for the decoded value.
var ErrShortBuffer = errors.New("layout: short buffer")

var le = binary.LittleEndian

func putF32(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }
func getF32(b []byte) float32    { return math.Float32frombits(le.Uint32(b)) }

func putF3(b []byte, v PackedFloat3) {
	putF32(b[0:], v[0])
	putF32(b[4:], v[1])
	putF32(b[8:], v[2])
}

func getF3(b []byte) PackedFloat3 {
	return PackedFloat3{getF32(b[0:]), getF32(b[4:]), getF32(b[8:])}
}

func checkLen(b []byte, n int, what string) error {
	if len(b) < n {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, what, n, len(b))
	}
	return nil
}

// ParticleVertex

func (v ParticleVertex) AppendBinary(b []byte) ([]byte, error) {
	off := len(b)
	b = append(b, make([]byte, ParticleVertexSize)...)
	p := b[off:]
	putF3(p[0:], v.Position)
	putF3(p[12:], v.Normal)
	putF32(p[24:], v.UV[0])
	putF32(p[28:], v.UV[1])
	return b, nil
}

func (v ParticleVertex) MarshalBinary() ([]byte, error) {
	return v.AppendBinary(make([]byte, 0, ParticleVertexSize))
}

func (v *ParticleVertex) UnmarshalBinary(b []byte) error {
	if err := checkLen(b, ParticleVertexSize, "ParticleVertex"); err != nil {
		return err
	}
	v.Position = getF3(b[0:])
	v.Normal = getF3(b[12:])
	v.UV = PackedFloat2{getF32(b[24:]), getF32(b[28:])}
	return nil
}

// InstanceDescriptor

func (d InstanceDescriptor) AppendBinary(b []byte) ([]byte, error) {
	b = le.AppendUint32(b, d.InstanceCount)
	b = le.AppendUint32(b, d.InVertexCount)
	b = le.AppendUint32(b, d.InIndexCount)
	return b, nil
}

func (d InstanceDescriptor) MarshalBinary() ([]byte, error) {
	return d.AppendBinary(make([]byte, 0, InstanceDescriptorSize))
}

func (d *InstanceDescriptor) UnmarshalBinary(b []byte) error {
	if err := checkLen(b, InstanceDescriptorSize, "InstanceDescriptor"); err != nil {
		return err
	}
	d.InstanceCount = le.Uint32(b[0:])
	d.InVertexCount = le.Uint32(b[4:])
	d.InIndexCount = le.Uint32(b[8:])
	return nil
}

// ParticleContext
//
//	advect_multiplier  0
//	time_delta         4
//	max_lifetime       8
//	bb_min            12
//	bb_max            24
//	vfield_dim        36
//	number_particles  48
//	spawn_range_start 52
//	spawn_range_count 56
//	spawn_at          60
//	spawn_at_radius   72

func (c ParticleContext) AppendBinary(b []byte) ([]byte, error) {
	off := len(b)
	b = append(b, make([]byte, ParticleContextSize)...)
	p := b[off:]
	putF32(p[0:], c.AdvectMultiplier)
	putF32(p[4:], c.TimeDelta)
	putF32(p[8:], c.MaxLifetime)
	putF3(p[12:], c.BBMin)
	putF3(p[24:], c.BBMax)
	le.PutUint32(p[36:], uint32(c.VFieldDim[0]))
	le.PutUint32(p[40:], uint32(c.VFieldDim[1]))
	le.PutUint32(p[44:], uint32(c.VFieldDim[2]))
	le.PutUint32(p[48:], c.NumberParticles)
	le.PutUint32(p[52:], c.SpawnRangeStart)
	le.PutUint32(p[56:], c.SpawnRangeCount)
	putF3(p[60:], c.SpawnAt)
	putF32(p[72:], c.SpawnAtRadius)
	return b, nil
}

func (c ParticleContext) MarshalBinary() ([]byte, error) {
	return c.AppendBinary(make([]byte, 0, ParticleContextSize))
}

func (c *ParticleContext) UnmarshalBinary(b []byte) error {
	if err := checkLen(b, ParticleContextSize, "ParticleContext"); err != nil {
		return err
	}
	c.AdvectMultiplier = getF32(b[0:])
	c.TimeDelta = getF32(b[4:])
	c.MaxLifetime = getF32(b[8:])
	c.BBMin = getF3(b[12:])
	c.BBMax = getF3(b[24:])
	c.VFieldDim = PackedInt3{
		int32(le.Uint32(b[36:])),
		int32(le.Uint32(b[40:])),
		int32(le.Uint32(b[44:])),
	}
	c.NumberParticles = le.Uint32(b[48:])
	c.SpawnRangeStart = le.Uint32(b[52:])
	c.SpawnRangeCount = le.Uint32(b[56:])
	c.SpawnAt = getF3(b[60:])
	c.SpawnAtRadius = getF32(b[72:])
	return nil
}

// AParticle

func (p AParticle) AppendBinary(b []byte) ([]byte, error) {
	off := len(b)
	b = append(b, make([]byte, AParticleSize)...)
	putF3(b[off:], p.Position)
	putF32(b[off+12:], p.Lifetime)
	return b, nil
}

func (p AParticle) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, AParticleSize))
}

func (p *AParticle) UnmarshalBinary(b []byte) error {
	if err := checkLen(b, AParticleSize, "AParticle"); err != nil {
		return err
	}
	p.Position = getF3(b[0:])
	p.Lifetime = getF32(b[12:])
	return nil
}

// AppendParticles encodes particles back to back.
func AppendParticles(b []byte, ps []AParticle) []byte {
	b = growBy(b, len(ps)*AParticleSize)
	for _, p := range ps {
		b, _ = p.AppendBinary(b)
	}
	return b
}

// DecodeParticles decodes len(b)/AParticleSize particles.
func DecodeParticles(b []byte) ([]AParticle, error) {
	if len(b)%AParticleSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrShortBuffer, len(b), AParticleSize)
	}
	out := make([]AParticle, len(b)/AParticleSize)
	for i := range out {
		_ = out[i].UnmarshalBinary(b[i*AParticleSize:])
	}
	return out, nil
}

// AppendVertices encodes vertices back to back.
func AppendVertices(b []byte, vs []ParticleVertex) []byte {
	b = growBy(b, len(vs)*ParticleVertexSize)
	for _, v := range vs {
		b, _ = v.AppendBinary(b)
	}
	return b
}

// DecodeVertices decodes len(b)/ParticleVertexSize vertices.
func DecodeVertices(b []byte) ([]ParticleVertex, error) {
	if len(b)%ParticleVertexSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrShortBuffer, len(b), ParticleVertexSize)
	}
	out := make([]ParticleVertex, len(b)/ParticleVertexSize)
	for i := range out {
		_ = out[i].UnmarshalBinary(b[i*ParticleVertexSize:])
	}
	return out, nil
}

func growBy(b []byte, n int) []byte {
	if cap(b)-len(b) < n {
		nb := make([]byte, len(b), len(b)+n)
		copy(nb, b)
		return nb
	}
	return b
}

// Bytes reinterprets a slice of layout values as raw bytes without copying.
// Only valid for the little-endian hosts the device queue runs on.
func Bytes[T ParticleVertex | InstanceDescriptor | ParticleContext | AParticle | PackedFloat3 | ~[16]float32 | uint16 | uint32](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
