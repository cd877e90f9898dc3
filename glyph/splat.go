package glyph

import (
	"fmt"

	"github.com/ziticore/ziti/layout"
)

// Splat is the CPU version of construct_from_inst_array and
// construct_inst_index: every instance gets its own transformed copy of the
// glyph, and its indices are rebased onto that copy.
func Splat(d *Description, instances []Instance) ([]layout.ParticleVertex, []uint32, error) {
	desc := d.Descriptor(uint32(len(instances)))
	if err := desc.Validate(); err != nil {
		return nil, nil, err
	}
	verts := make([]layout.ParticleVertex, desc.OutVertexCount())
	indices := make([]uint32, desc.OutIndexCount())
	for i := range instances {
		SplatVertices(desc, uint32(i), instances[i], d.Vertices, verts)
		SplatIndices(desc, uint32(i), d.Indices, indices)
	}
	return verts, indices, nil
}

// SplatVertices writes the vertices of one instance.
func SplatVertices(desc layout.InstanceDescriptor, inst uint32, m Instance, in, out []layout.ParticleVertex) {
	vc := desc.InVertexCount
	base := inst * vc
	for v := uint32(0); v < vc; v++ {
		out[base+v] = m.Transform(in[v])
	}
}

// SplatIndices writes the indices of one instance.
func SplatIndices(desc layout.InstanceDescriptor, inst uint32, in []uint16, out []uint32) {
	ic := desc.InIndexCount
	base := inst * ic
	offset := inst * desc.InVertexCount
	for i := uint32(0); i < ic; i++ {
		out[base+i] = uint32(in[i]) + offset
	}
}

// Part is the drawable range produced by a splat.
type Part struct {
	IndexOffset int
	IndexCount  int
	Bounds      BoundingBox
}

// PartFor describes the single triangle part covering every instance.
func PartFor(desc layout.InstanceDescriptor, bounds BoundingBox) Part {
	return Part{IndexCount: desc.OutIndexCount(), Bounds: bounds}
}

func (p Part) String() string {
	return fmt.Sprintf("part[%d +%d] %v..%v", p.IndexOffset, p.IndexCount, p.Bounds.Min, p.Bounds.Max)
}
