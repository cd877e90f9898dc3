package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ziticore/ziti/glyph"
	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/shaders"
)

// GlyphInstances expands one glyph per instance into flat vertex and
// index buffers ready for an indexed draw.
type GlyphInstances struct {
	gc    *Context
	Glyph *glyph.Description
	desc  layout.InstanceDescriptor

	vertexFn *ComputeFunction
	indexFn  *ComputeFunction

	descBuf   *wgpu.Buffer
	vertexIn  *wgpu.Buffer
	indexIn   *wgpu.Buffer
	VertexOut *wgpu.Buffer
	IndexOut  *wgpu.Buffer

	vertexBG  *wgpu.BindGroup
	indexBG   *wgpu.BindGroup
	boundInst *wgpu.Buffer
}

// NewGlyphInstances uploads g and sizes the outputs for count instances.
func NewGlyphInstances(gc *Context, g *glyph.Description, count uint32) (*GlyphInstances, error) {
	desc := g.Descriptor(count)
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	src := shaders.PseudoInstance()
	vfn, err := gc.NewComputeFunction("PseudoInstance", src, shaders.ConstructFromInstArray)
	if err != nil {
		return nil, err
	}
	ifn, err := gc.NewComputeFunction("PseudoInstance", src, shaders.ConstructInstIndex)
	if err != nil {
		vfn.Release()
		return nil, err
	}
	gi := &GlyphInstances{gc: gc, Glyph: g, desc: desc, vertexFn: vfn, indexFn: ifn}

	descBytes, err := desc.MarshalBinary()
	if err != nil {
		gi.Release()
		return nil, err
	}
	storage := wgpu.BufferUsageStorage
	uploads := []struct {
		name  string
		buf   **wgpu.Buffer
		data  []byte
		size  int
		usage wgpu.BufferUsage
	}{
		{"InstanceDescriptor", &gi.descBuf, descBytes, 0, storage},
		{"GlyphVertices", &gi.vertexIn, layout.Bytes(g.Vertices), 0, storage},
		{"GlyphIndices", &gi.indexIn, layout.Bytes(g.Indices), 0, storage},
		{"InstancedVertices", &gi.VertexOut, nil, desc.OutVertexCount() * layout.ParticleVertexSize, storage | wgpu.BufferUsageVertex | wgpu.BufferUsageCopySrc},
		{"InstancedIndices", &gi.IndexOut, nil, desc.OutIndexCount() * 4, storage | wgpu.BufferUsageIndex | wgpu.BufferUsageCopySrc},
	}
	for _, u := range uploads {
		if _, err := gc.ensureBuffer(u.name, u.buf, u.data, u.size, u.usage); err != nil {
			gi.Release()
			return nil, err
		}
	}

	gi.indexBG, err = gc.BindBuffers(ifn, map[uint32]*wgpu.Buffer{
		0: gi.descBuf,
		4: gi.indexIn,
		5: gi.IndexOut,
	})
	if err != nil {
		gi.Release()
		return nil, err
	}
	return gi, nil
}

// Descriptor returns the counts the kernels run with.
func (gi *GlyphInstances) Descriptor() layout.InstanceDescriptor { return gi.desc }

func (gi *GlyphInstances) bindInstances(instances *wgpu.Buffer) error {
	if gi.vertexBG != nil && gi.boundInst == instances {
		return nil
	}
	bg, err := gi.gc.BindBuffers(gi.vertexFn, map[uint32]*wgpu.Buffer{
		0: gi.descBuf,
		1: instances,
		2: gi.vertexIn,
		3: gi.VertexOut,
	})
	if err != nil {
		return err
	}
	if gi.vertexBG != nil {
		gi.vertexBG.Release()
	}
	gi.vertexBG, gi.boundInst = bg, instances
	return nil
}

// Encode records both splat kernels into s, reading instance matrices
// from instances.
func (gi *GlyphInstances) Encode(s *Session, instances *wgpu.Buffer) error {
	if instances == nil {
		return fmt.Errorf("gpu: no instance buffer for glyph %s", gi.Glyph.ID)
	}
	if err := gi.bindInstances(instances); err != nil {
		return err
	}
	n := gi.desc.InstanceCount
	return s.WithPass(func(pass *wgpu.ComputePassEncoder) {
		Dispatch1D(pass, gi.vertexFn, gi.vertexBG, n)
		Dispatch1D(pass, gi.indexFn, gi.indexBG, n)
	})
}

// Part describes the drawable range of the output index buffer.
func (gi *GlyphInstances) Part(bounds glyph.BoundingBox) glyph.Part {
	return glyph.PartFor(gi.desc, bounds)
}

// ReadVertices waits for the device and returns the expanded vertices.
func (gi *GlyphInstances) ReadVertices() ([]layout.ParticleVertex, error) {
	size := gi.desc.OutVertexCount() * layout.ParticleVertexSize
	b, err := gi.gc.ReadBuffer(gi.VertexOut, uint64(size))
	if err != nil {
		return nil, err
	}
	return layout.DecodeVertices(b[:size])
}

// ReadIndices waits for the device and returns the expanded indices.
func (gi *GlyphInstances) ReadIndices() ([]uint32, error) {
	n := gi.desc.OutIndexCount()
	b, err := gi.gc.ReadBuffer(gi.IndexOut, uint64(n*4))
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	copy(layout.Bytes(out), b)
	return out, nil
}

func (gi *GlyphInstances) Release() {
	for _, b := range []**wgpu.Buffer{&gi.descBuf, &gi.vertexIn, &gi.indexIn, &gi.VertexOut, &gi.IndexOut} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	for _, bg := range []**wgpu.BindGroup{&gi.vertexBG, &gi.indexBG} {
		if *bg != nil {
			(*bg).Release()
			*bg = nil
		}
	}
	gi.boundInst = nil
	gi.vertexFn.Release()
	gi.indexFn.Release()
}
