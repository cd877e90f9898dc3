// Package glyph holds the template meshes copied once per instance by the
// pseudo instancing system, and the CPU version of the splat kernels.
package glyph

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/ziticore/ziti/layout"
)

// BoundingBox is an axis aligned box.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Empty returns a box that any Extend call replaces.
func Empty() BoundingBox {
	inf := float32(3.4e38)
	return BoundingBox{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
}

func (b BoundingBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b BoundingBox) Extend(p mgl32.Vec3) BoundingBox {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

func (b BoundingBox) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// ID names a glyph.
type ID string

// Description is a mesh to be copied and transformed for every instance.
type Description struct {
	ID       ID
	Vertices []layout.ParticleVertex
	Indices  []uint16
	Bounds   BoundingBox
}

// New builds a glyph from positions, normals and a triangle list.
func New(positions, normals []mgl32.Vec3, indices []uint16, bounds BoundingBox) (*Description, error) {
	if len(positions) != len(normals) {
		return nil, fmt.Errorf("glyph: %d positions but %d normals", len(positions), len(normals))
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("glyph: %d indices is not a triangle list", len(indices))
	}
	for _, ix := range indices {
		if int(ix) >= len(positions) {
			return nil, fmt.Errorf("glyph: index %d out of range for %d vertices", ix, len(positions))
		}
	}
	d := &Description{
		ID:       ID(uuid.NewString()),
		Vertices: make([]layout.ParticleVertex, len(positions)),
		Indices:  append([]uint16(nil), indices...),
		Bounds:   bounds,
	}
	for i := range positions {
		d.Vertices[i] = layout.ParticleVertex{
			Position: layout.Pack(positions[i]),
			Normal:   layout.Pack(normals[i]),
		}
	}
	return d, nil
}

// Descriptor describes n instances of this glyph.
func (d *Description) Descriptor(n uint32) layout.InstanceDescriptor {
	return layout.InstanceDescriptor{
		InstanceCount: n,
		InVertexCount: uint32(len(d.Vertices)),
		InIndexCount:  uint32(len(d.Indices)),
	}
}

var cubePositions = []mgl32.Vec3{
	{-1, -1, 1},
	{1, -1, 1},
	{1, 1, 1},
	{-1, 1, 1},

	{-1, -1, -1},
	{1, -1, -1},
	{1, 1, -1},
	{-1, 1, -1},
}

const c = 0.5774

var cubeNormals = []mgl32.Vec3{
	{-c, -c, c},
	{c, -c, c},
	{c, c, c},
	{-c, c, c},

	{-c, -c, -c},
	{c, -c, -c},
	{c, c, -c},
	{-c, c, -c},
}

var cubeIndices = []uint16{
	// front
	0, 1, 2,
	2, 3, 0,
	// right
	1, 5, 6,
	6, 2, 1,
	// back
	7, 6, 5,
	5, 4, 7,
	// left
	4, 0, 3,
	3, 7, 4,
	// bottom
	4, 5, 1,
	1, 0, 4,
	// top
	3, 2, 6,
	6, 7, 3,
}

// Cube is a unit cube from -1 to 1 with smoothed corner normals.
func Cube() *Description {
	d, err := New(cubePositions, cubeNormals, cubeIndices, BoundingBox{
		Min: mgl32.Vec3{-1, -1, -1},
		Max: mgl32.Vec3{1, 1, 1},
	})
	if err != nil {
		panic(err)
	}
	return d
}
