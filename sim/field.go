// Package sim is the CPU reference of the advection kernel. It follows the
// same step as advect.wgsl and is used both as a fallback backend and to
// pin down kernel semantics in tests.
package sim

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ziticore/ziti/layout"
)

// VelocityField is a dense grid of velocities, x varying fastest.
type VelocityField struct {
	Dim  layout.PackedInt3
	Data []layout.PackedFloat3
}

// NewVelocityField allocates a zero field.
func NewVelocityField(dim layout.PackedInt3) (*VelocityField, error) {
	n := dim.Cells()
	if n == 0 {
		return nil, fmt.Errorf("sim: velocity field dims %v must be positive", dim)
	}
	return &VelocityField{Dim: dim, Data: make([]layout.PackedFloat3, n)}, nil
}

// UniformField is a field with the same velocity everywhere.
func UniformField(dim layout.PackedInt3, v mgl32.Vec3) (*VelocityField, error) {
	f, err := NewVelocityField(dim)
	if err != nil {
		return nil, err
	}
	for i := range f.Data {
		f.Data[i] = layout.Pack(v)
	}
	return f, nil
}

// FieldFromFloats wraps packed x,y,z floats as produced by a simulation dump.
func FieldFromFloats(dim layout.PackedInt3, xyz []float32) (*VelocityField, error) {
	f, err := NewVelocityField(dim)
	if err != nil {
		return nil, err
	}
	if len(xyz) != 3*len(f.Data) {
		return nil, fmt.Errorf("sim: %d floats for %d cells", len(xyz), len(f.Data))
	}
	for i := range f.Data {
		f.Data[i] = layout.PackedFloat3{xyz[3*i], xyz[3*i+1], xyz[3*i+2]}
	}
	return f, nil
}

func (f *VelocityField) index(x, y, z int32) int {
	return int(x) + int(f.Dim[0])*(int(y)+int(f.Dim[1])*int(z))
}

func (f *VelocityField) At(x, y, z int32) mgl32.Vec3 { return f.Data[f.index(x, y, z)].Vec3() }

func (f *VelocityField) Set(x, y, z int32, v mgl32.Vec3) { f.Data[f.index(x, y, z)] = layout.Pack(v) }

// Bytes is the upload view of the field.
func (f *VelocityField) Bytes() []byte { return layout.Bytes(f.Data) }

// gridCoord maps a world coordinate onto [0, dim-1] along one axis.
func gridCoord(p, lo, hi float32, dim int32) float32 {
	extent := hi - lo
	if extent <= 0 || dim <= 1 {
		return 0
	}
	t := (p - lo) / extent
	t = min(max(t, 0), 1)
	return t * float32(dim-1)
}

// Sample trilinearly interpolates the field at a position inside the box.
// Positions outside the box clamp to its faces.
func (f *VelocityField) Sample(bbMin, bbMax, p mgl32.Vec3) mgl32.Vec3 {
	var i0, i1 [3]int32
	var fr [3]float32
	for a := 0; a < 3; a++ {
		g := gridCoord(p[a], bbMin[a], bbMax[a], f.Dim[a])
		fl := math32.Floor(g)
		i0[a] = min(int32(fl), f.Dim[a]-1)
		i1[a] = min(i0[a]+1, f.Dim[a]-1)
		fr[a] = g - fl
	}

	lerp := func(a, b mgl32.Vec3, t float32) mgl32.Vec3 { return a.Add(b.Sub(a).Mul(t)) }

	c00 := lerp(f.At(i0[0], i0[1], i0[2]), f.At(i1[0], i0[1], i0[2]), fr[0])
	c10 := lerp(f.At(i0[0], i1[1], i0[2]), f.At(i1[0], i1[1], i0[2]), fr[0])
	c01 := lerp(f.At(i0[0], i0[1], i1[2]), f.At(i1[0], i0[1], i1[2]), fr[0])
	c11 := lerp(f.At(i0[0], i1[1], i1[2]), f.At(i1[0], i1[1], i1[2]), fr[0])

	c0 := lerp(c00, c10, fr[1])
	c1 := lerp(c01, c11, fr[1])
	return lerp(c0, c1, fr[2])
}
