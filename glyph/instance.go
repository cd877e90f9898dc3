package glyph

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ziticore/ziti/layout"
)

// Instance is one float4x4 instance record. Its columns are
//
//	0: position (w unused)
//	1: color rgba
//	2: rotation quaternion (x, y, z, w)
//	3: scale (w unused)
type Instance mgl32.Mat4

// NewInstance packs an instance record.
func NewInstance(pos mgl32.Vec3, color mgl32.Vec4, rot mgl32.Quat, scale mgl32.Vec3) Instance {
	var m Instance
	m.SetPosition(pos)
	m.SetColor(color)
	m.SetRotation(rot)
	m.SetScale(scale)
	return m
}

func (m *Instance) col(i int) []float32 { return m[i*4 : i*4+4] }

func (m *Instance) SetPosition(p mgl32.Vec3) { copy(m.col(0), []float32{p[0], p[1], p[2], 0}) }
func (m *Instance) SetColor(c mgl32.Vec4)    { copy(m.col(1), c[:]) }
func (m *Instance) SetRotation(q mgl32.Quat) {
	copy(m.col(2), []float32{q.V[0], q.V[1], q.V[2], q.W})
}
func (m *Instance) SetScale(s mgl32.Vec3) { copy(m.col(3), []float32{s[0], s[1], s[2], 0}) }

func (m Instance) Position() mgl32.Vec3 { return mgl32.Vec3{m[0], m[1], m[2]} }
func (m Instance) Color() mgl32.Vec4    { return mgl32.Vec4{m[4], m[5], m[6], m[7]} }
func (m Instance) Rotation() mgl32.Quat {
	return mgl32.Quat{W: m[11], V: mgl32.Vec3{m[8], m[9], m[10]}}
}
func (m Instance) Scale() mgl32.Vec3 { return mgl32.Vec3{m[12], m[13], m[14]} }

// Hidden reports a zero-scale instance, which is how dead particles are drawn.
func (m Instance) Hidden() bool { return m.Scale() == (mgl32.Vec3{}) }

// Transform places a glyph vertex: scale, rotate, then translate.
func (m Instance) Transform(v layout.ParticleVertex) layout.ParticleVertex {
	q := m.Rotation()
	s := m.Scale()
	p := q.Rotate(mgl32.Vec3{v.Position[0] * s[0], v.Position[1] * s[1], v.Position[2] * s[2]})
	return layout.ParticleVertex{
		Position: layout.Pack(p.Add(m.Position())),
		Normal:   layout.Pack(q.Rotate(mgl32.Vec3(v.Normal))),
		UV:       v.UV,
	}
}

// Bounds is the box around all visible instances of a glyph.
func Bounds(instances []Instance, glyph BoundingBox) BoundingBox {
	out := Empty()
	for _, m := range instances {
		if m.Hidden() {
			continue
		}
		s := m.Scale()
		// the rotated glyph box fits in the sphere around it
		r := max(abs(glyph.Min.Len()), abs(glyph.Max.Len())) * max(s[0], s[1], s[2])
		p := m.Position()
		out = out.Extend(p.Sub(mgl32.Vec3{r, r, r})).Extend(p.Add(mgl32.Vec3{r, r, r}))
	}
	return out
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// Buffer is the CPU copy of an instance buffer.
type Buffer struct {
	Instances []Instance
}

// NewBuffer allocates count hidden instances.
func NewBuffer(count int) *Buffer {
	return &Buffer{Instances: make([]Instance, count)}
}

func (b *Buffer) Len() int { return len(b.Instances) }

// Bytes is the upload view of the buffer.
func (b *Buffer) Bytes() []byte { return layout.Bytes(b.Instances) }

// FillRamp lays instances along the diagonal, a pattern useful to eyeball
// the splat output.
func (b *Buffer) FillRamp() {
	for i := range b.Instances {
		t := float32(i) / 10
		b.Instances[i] = NewInstance(
			mgl32.Vec3{t, t, t},
			mgl32.Vec4{1, 1, 1, 1},
			mgl32.QuatIdent(),
			mgl32.Vec3{0.1, 0.1, 0.1},
		)
	}
}
