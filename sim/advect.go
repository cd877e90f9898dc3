package sim

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ziticore/ziti/glyph"
	"github.com/ziticore/ziti/layout"
)

// BaseScale is the glyph scale of a freshly spawned particle, in meters.
const BaseScale = 0.01

var ErrBufferSize = errors.New("sim: buffer does not match number_particles")

// Advect runs one step for every particle and writes its instance record.
// instances may be nil when only the particle state is wanted.
func Advect(ctx *layout.ParticleContext, particles []layout.AParticle, field *VelocityField, instances []glyph.Instance) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	n := int(ctx.NumberParticles)
	if len(particles) != n {
		return fmt.Errorf("%w: %d particles, context says %d", ErrBufferSize, len(particles), n)
	}
	if instances != nil && len(instances) != n {
		return fmt.Errorf("%w: %d instances, context says %d", ErrBufferSize, len(instances), n)
	}
	if field == nil || field.Dim != ctx.VFieldDim || len(field.Data) != ctx.VelocityFieldLen() {
		return fmt.Errorf("sim: velocity field does not match vfield_dim %v", ctx.VFieldDim)
	}

	for i := range particles {
		StepParticle(ctx, uint32(i), &particles[i], field)
		if instances != nil {
			instances[i] = InstanceOf(ctx, particles[i])
		}
	}
	return nil
}

// StepParticle advances a single particle, the body of advect_particles.
func StepParticle(ctx *layout.ParticleContext, i uint32, p *layout.AParticle, field *VelocityField) {
	if ctx.InSpawnRange(i) {
		p.Position = layout.Pack(SpawnPoint(ctx, i))
		p.Lifetime = ctx.MaxLifetime
		return
	}
	if !p.Alive() {
		return
	}

	lo, hi := ctx.Bounds()
	pos := p.Position.Vec3()
	vel := field.Sample(lo, hi, pos)
	pos = pos.Add(vel.Mul(ctx.AdvectMultiplier * ctx.TimeDelta))

	p.Position = layout.Pack(pos)
	p.Age(ctx.TimeDelta)
	if !inside(lo, hi, pos) {
		p.Lifetime = 0
	}
}

func inside(lo, hi, p mgl32.Vec3) bool {
	return p[0] >= lo[0] && p[0] <= hi[0] &&
		p[1] >= lo[1] && p[1] <= hi[1] &&
		p[2] >= lo[2] && p[2] <= hi[2]
}

// InstanceOf is the instance record of a particle. Dead particles get a
// zero scale, live ones shrink and fade as they age.
func InstanceOf(ctx *layout.ParticleContext, p layout.AParticle) glyph.Instance {
	if !p.Alive() || ctx.MaxLifetime <= 0 {
		return glyph.NewInstance(p.Position.Vec3(), mgl32.Vec4{}, mgl32.QuatIdent(), mgl32.Vec3{})
	}
	f := min(p.Lifetime/ctx.MaxLifetime, 1)
	s := BaseScale * f
	return glyph.NewInstance(p.Position.Vec3(), mgl32.Vec4{1, 1, 1, f}, mgl32.QuatIdent(), mgl32.Vec3{s, s, s})
}

// StepsToExpire is how many steps of dt a lifetime survives. It is -1 when
// dt is not positive, the particle then never expires on its own.
func StepsToExpire(lifetime, dt float32) int {
	if lifetime <= 0 {
		return 0
	}
	if dt <= 0 {
		return -1
	}
	return int(math32.Ceil(lifetime / dt))
}

// Alive counts live particles.
func Alive(particles []layout.AParticle) int {
	n := 0
	for _, p := range particles {
		if p.Alive() {
			n++
		}
	}
	return n
}
