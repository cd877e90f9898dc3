package ziti

import (
	"fmt"

	"github.com/ziticore/ziti/glyph"
	"github.com/ziticore/ziti/gpu"
	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/sim"
)

// Backend creates the per target state that runs advection and splatting.
type Backend interface {
	Name() BackendKind
	NewRunner(ctx layout.ParticleContext, field *sim.VelocityField, g *glyph.Description) (Runner, error)
	Release()
}

// Runner advances one advection target.
type Runner interface {
	// Step returns false when the frame was skipped.
	Step(ctx *layout.ParticleContext) (bool, error)
	Particles() ([]layout.AParticle, error)
	// Part is the drawable range of the last splat.
	Part() glyph.Part
	Release()
}

// NewBackend builds the backend named by kind.
func NewBackend(kind BackendKind, log Logger) (Backend, error) {
	switch kind {
	case BackendCPU:
		return CPUBackend{}, nil
	case BackendGPU:
		b, err := NewGPUBackend(log)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", ErrConfig, kind)
}

// CPUBackend runs the reference implementation on the host.
type CPUBackend struct{}

func (CPUBackend) Name() BackendKind { return BackendCPU }
func (CPUBackend) Release()          {}

func (CPUBackend) NewRunner(ctx layout.ParticleContext, field *sim.VelocityField, g *glyph.Description) (Runner, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	if field == nil || field.Dim != ctx.VFieldDim {
		return nil, fmt.Errorf("%w: velocity field does not match vfield_dim", layout.ErrInvalidContext)
	}
	if err := g.Descriptor(ctx.NumberParticles).Validate(); err != nil {
		return nil, err
	}
	return &cpuRunner{
		field:     field,
		glyph:     g,
		particles: make([]layout.AParticle, ctx.NumberParticles),
		instances: glyph.NewBuffer(int(ctx.NumberParticles)),
	}, nil
}

type cpuRunner struct {
	field     *sim.VelocityField
	glyph     *glyph.Description
	particles []layout.AParticle
	instances *glyph.Buffer

	vertices []layout.ParticleVertex
	indices  []uint32
	part     glyph.Part
}

func (r *cpuRunner) Step(ctx *layout.ParticleContext) (bool, error) {
	if err := sim.Advect(ctx, r.particles, r.field, r.instances.Instances); err != nil {
		return false, err
	}
	vs, is, err := glyph.Splat(r.glyph, r.instances.Instances)
	if err != nil {
		return false, err
	}
	r.vertices, r.indices = vs, is
	lo, hi := ctx.Bounds()
	r.part = glyph.PartFor(r.glyph.Descriptor(ctx.NumberParticles), glyph.BoundingBox{Min: lo, Max: hi})
	return true, nil
}

func (r *cpuRunner) Particles() ([]layout.AParticle, error) {
	return append([]layout.AParticle(nil), r.particles...), nil
}

func (r *cpuRunner) Part() glyph.Part { return r.part }
func (r *cpuRunner) Release()         {}

// GPUBackend shares one device between every target.
type GPUBackend struct {
	gc *gpu.Context
}

func NewGPUBackend(log Logger) (*GPUBackend, error) {
	gc, err := gpu.NewContext(log)
	if err != nil {
		return nil, err
	}
	return &GPUBackend{gc: gc}, nil
}

func (b *GPUBackend) Name() BackendKind { return BackendGPU }

func (b *GPUBackend) Release() { b.gc.Release() }

func (b *GPUBackend) NewRunner(ctx layout.ParticleContext, field *sim.VelocityField, g *glyph.Description) (Runner, error) {
	adv, err := gpu.NewAdvector(b.gc, ctx, field)
	if err != nil {
		return nil, err
	}
	gi, err := gpu.NewGlyphInstances(b.gc, g, ctx.NumberParticles)
	if err != nil {
		adv.Release()
		return nil, err
	}
	return &gpuRunner{adv: adv, glyphs: gi}, nil
}

type gpuRunner struct {
	adv    *gpu.Advector
	glyphs *gpu.GlyphInstances
	part   glyph.Part
}

func (r *gpuRunner) Step(ctx *layout.ParticleContext) (bool, error) {
	ran, err := r.adv.Step(ctx, r.glyphs)
	if err != nil || !ran {
		return ran, err
	}
	lo, hi := ctx.Bounds()
	r.part = r.glyphs.Part(glyph.BoundingBox{Min: lo, Max: hi})
	return true, nil
}

func (r *gpuRunner) Particles() ([]layout.AParticle, error) { return r.adv.ReadParticles() }

func (r *gpuRunner) Part() glyph.Part { return r.part }

func (r *gpuRunner) Release() {
	r.glyphs.Release()
	r.adv.Release()
}
