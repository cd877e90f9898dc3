package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ziticore/ziti/glyph"
	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/shaders"
	"github.com/ziticore/ziti/sim"
)

// Advector owns the device buffers of one particle system.
//
//	binding 0  ParticleContext      read
//	binding 1  float4x4 instances   read_write
//	binding 2  AParticle            read_write
//	binding 3  packed velocity grid read
type Advector struct {
	gc *Context
	fn *ComputeFunction

	contextBuf  *wgpu.Buffer
	InstanceBuf *wgpu.Buffer
	particleBuf *wgpu.Buffer
	velocityBuf *wgpu.Buffer
	bindGroup   *wgpu.BindGroup

	number   uint32
	inflight inflight

	// Skipped counts frames dropped because the previous one was still running.
	Skipped int
}

// NewAdvector allocates buffers for ctx.NumberParticles particles and
// uploads the velocity field.
func NewAdvector(gc *Context, ctx layout.ParticleContext, field *sim.VelocityField) (*Advector, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	if field == nil || field.Dim != ctx.VFieldDim {
		return nil, fmt.Errorf("gpu: velocity field does not match vfield_dim %v", ctx.VFieldDim)
	}
	fn, err := gc.NewComputeFunction("Advect", shaders.Advect(), shaders.AdvectParticles)
	if err != nil {
		return nil, err
	}
	a := &Advector{gc: gc, fn: fn, number: ctx.NumberParticles}

	n := int(ctx.NumberParticles)
	storage := wgpu.BufferUsageStorage
	uploads := []struct {
		name string
		buf  **wgpu.Buffer
		data []byte
		size int
	}{
		{"ParticleContext", &a.contextBuf, layout.Bytes([]layout.ParticleContext{ctx}), 0},
		{"Instances", &a.InstanceBuf, nil, n * layout.InstanceMatrixSize},
		{"Particles", &a.particleBuf, nil, n * layout.AParticleSize},
		{"VelocityField", &a.velocityBuf, field.Bytes(), 0},
	}
	for _, u := range uploads {
		if _, err := gc.ensureBuffer(u.name, u.buf, u.data, u.size, storage|wgpu.BufferUsageCopySrc); err != nil {
			a.Release()
			return nil, err
		}
	}

	a.bindGroup, err = gc.BindBuffers(fn, map[uint32]*wgpu.Buffer{
		0: a.contextBuf,
		1: a.InstanceBuf,
		2: a.particleBuf,
		3: a.velocityBuf,
	})
	if err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

// Busy reports whether the last frame this advector submitted is still in
// flight. Work submitted by other users of the device does not count.
func (a *Advector) Busy() bool {
	return a.inflight.busy(a.gc.Idle)
}

// Encode uploads ctx and records the advection dispatch into s.
func (a *Advector) Encode(s *Session, ctx *layout.ParticleContext) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	if ctx.NumberParticles != a.number {
		return fmt.Errorf("gpu: context has %d particles, buffers hold %d", ctx.NumberParticles, a.number)
	}
	b, err := ctx.MarshalBinary()
	if err != nil {
		return err
	}
	if err := a.gc.Queue.WriteBuffer(a.contextBuf, 0, b); err != nil {
		return fmt.Errorf("failed to write particle context: %w", err)
	}
	return s.WithPass(func(pass *wgpu.ComputePassEncoder) {
		Dispatch1D(pass, a.fn, a.bindGroup, a.number)
	})
}

// Step runs one frame: advection, then splatting into glyphs when given.
// A frame is skipped, returning false, while the previous one is running.
func (a *Advector) Step(ctx *layout.ParticleContext, glyphs *GlyphInstances) (bool, error) {
	if a.Busy() {
		a.Skipped++
		a.gc.log.Warnf("gpu: skipping advection for this frame")
		return false, nil
	}
	s, err := a.gc.NewSession("Advection")
	if err != nil {
		return false, err
	}
	if err := a.Encode(s, ctx); err != nil {
		_ = s.Submit()
		return false, err
	}
	if glyphs != nil {
		if err := glyphs.Encode(s, a.InstanceBuf); err != nil {
			_ = s.Submit()
			return false, err
		}
	}
	if err := s.Submit(); err != nil {
		return false, err
	}
	a.inflight.submitted()
	a.gc.Queue.OnSubmittedWorkDone(a.inflight.done)
	return true, nil
}

// UploadParticles replaces the particle state.
func (a *Advector) UploadParticles(ps []layout.AParticle) error {
	if len(ps) != int(a.number) {
		return fmt.Errorf("gpu: %d particles for a buffer of %d", len(ps), a.number)
	}
	if err := a.gc.Queue.WriteBuffer(a.particleBuf, 0, layout.Bytes(ps)); err != nil {
		return fmt.Errorf("failed to write particles: %w", err)
	}
	return nil
}

// ReadParticles waits for the device and returns the particle state.
func (a *Advector) ReadParticles() ([]layout.AParticle, error) {
	b, err := a.gc.ReadBuffer(a.particleBuf, uint64(a.number)*layout.AParticleSize)
	if err != nil {
		return nil, err
	}
	return layout.DecodeParticles(b[:int(a.number)*layout.AParticleSize])
}

// ReadInstances waits for the device and returns the instance records.
func (a *Advector) ReadInstances() ([]glyph.Instance, error) {
	size := int(a.number) * layout.InstanceMatrixSize
	b, err := a.gc.ReadBuffer(a.InstanceBuf, uint64(size))
	if err != nil {
		return nil, err
	}
	out := make([]glyph.Instance, a.number)
	copy(layout.Bytes(out), b[:size])
	return out, nil
}

func (a *Advector) Release() {
	for _, b := range []**wgpu.Buffer{&a.contextBuf, &a.InstanceBuf, &a.particleBuf, &a.velocityBuf} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if a.bindGroup != nil {
		a.bindGroup.Release()
		a.bindGroup = nil
	}
	a.fn.Release()
}

// inflight tracks the last submission of one advector. The work done
// callback fires once everything queued up to that submission finished.
type inflight struct {
	pending atomic.Bool
}

func (f *inflight) submitted() { f.pending.Store(true) }

func (f *inflight) done(wgpu.QueueWorkDoneStatus) { f.pending.Store(false) }

// busy polls the device so pending callbacks run, then reports.
func (f *inflight) busy(poll func() bool) bool {
	if !f.pending.Load() {
		return false
	}
	poll()
	return f.pending.Load()
}
