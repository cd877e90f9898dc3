package glyph

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziticore/ziti/layout"
)

func TestCube(t *testing.T) {
	c := Cube()
	assert.Len(t, c.Vertices, 8)
	assert.Len(t, c.Indices, 36)
	assert.NotEmpty(t, c.ID)

	d := c.Descriptor(5)
	assert.Equal(t, layout.InstanceDescriptor{InstanceCount: 5, InVertexCount: 8, InIndexCount: 36}, d)
	assert.NoError(t, d.Validate())

	for _, v := range c.Vertices {
		assert.True(t, c.Bounds.Contains(mgl32.Vec3(v.Position)))
	}
}

func TestNewRejectsBadMeshes(t *testing.T) {
	_, err := New([]mgl32.Vec3{{0, 0, 0}}, nil, nil, BoundingBox{})
	assert.Error(t, err)

	p := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	_, err = New(p, p, []uint16{0, 1}, BoundingBox{})
	assert.Error(t, err)

	_, err = New(p, p, []uint16{0, 1, 3}, BoundingBox{})
	assert.Error(t, err)
}

func TestInstanceColumns(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	m := NewInstance(mgl32.Vec3{1, 2, 3}, mgl32.Vec4{0.1, 0.2, 0.3, 0.4}, rot, mgl32.Vec3{2, 2, 2})

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, m.Position())
	assert.Equal(t, mgl32.Vec4{0.1, 0.2, 0.3, 0.4}, m.Color())
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, m.Scale())
	assert.True(t, m.Rotation().ApproxEqual(rot))
	assert.Equal(t, float32(0), m[3])
	assert.False(t, m.Hidden())
	assert.True(t, Instance{}.Hidden())
}

func TestTransform(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	m := NewInstance(mgl32.Vec3{10, 0, 0}, mgl32.Vec4{1, 1, 1, 1}, rot, mgl32.Vec3{2, 2, 2})

	v := m.Transform(layout.ParticleVertex{
		Position: layout.PackedFloat3{1, 0, 0},
		Normal:   layout.PackedFloat3{1, 0, 0},
		UV:       layout.PackedFloat2{0.25, 0.5},
	})
	// x axis scaled by 2 then rotated onto y, then moved by 10 on x
	assert.True(t, mgl32.Vec3(v.Position).ApproxEqualThreshold(mgl32.Vec3{10, 2, 0}, 1e-5), "%v", v.Position)
	assert.True(t, mgl32.Vec3(v.Normal).ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-5), "%v", v.Normal)
	assert.Equal(t, layout.PackedFloat2{0.25, 0.5}, v.UV)
}

func TestSplat(t *testing.T) {
	c := Cube()
	buf := NewBuffer(3)
	buf.FillRamp()
	require.Equal(t, 3, buf.Len())
	assert.Len(t, buf.Bytes(), 3*layout.InstanceMatrixSize)

	verts, indices, err := Splat(c, buf.Instances)
	require.NoError(t, err)
	require.Len(t, verts, 24)
	require.Len(t, indices, 108)

	// second instance indices point at the second copy of the vertices
	for i := 0; i < 36; i++ {
		assert.Equal(t, uint32(c.Indices[i])+8, indices[36+i])
	}
	// third instance sits at 0.2 with scale 0.1
	want := mgl32.Vec3{0.2 - 0.1, 0.2 - 0.1, 0.2 + 0.1}
	assert.True(t, mgl32.Vec3(verts[16].Position).ApproxEqualThreshold(want, 1e-5), "%v", verts[16].Position)
}

func TestBounds(t *testing.T) {
	c := Cube()
	instances := []Instance{
		NewInstance(mgl32.Vec3{0, 0, 0}, mgl32.Vec4{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
		NewInstance(mgl32.Vec3{10, 0, 0}, mgl32.Vec4{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
		{}, // hidden, ignored
	}
	bb := Bounds(instances, c.Bounds)
	assert.False(t, bb.IsEmpty())
	assert.True(t, bb.Contains(mgl32.Vec3{11, 1, 1}))
	assert.True(t, bb.Contains(mgl32.Vec3{-1, -1, -1}))
	assert.False(t, bb.Contains(mgl32.Vec3{0, 5, 0}))

	assert.True(t, Bounds(nil, c.Bounds).IsEmpty())

	part := PartFor(c.Descriptor(2), bb)
	assert.Equal(t, 72, part.IndexCount)
}
