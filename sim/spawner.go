package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ziticore/ziti/layout"
)

// Spawner emits a wave of particles every frame at its position.
type Spawner struct {
	Count    int
	Radius   float32
	Position mgl32.Vec3
}

// DefaultSpawner matches the defaults of the spawn component.
func DefaultSpawner() Spawner {
	return Spawner{Count: 10, Radius: 0.5}
}

// Apply moves the spawn ball into the advection space described by toLocal
// and advances the ring to the next wave.
func (s Spawner) Apply(ctx *layout.ParticleContext, toLocal mgl32.Mat4) {
	at := mgl32.TransformCoordinate(s.Position, toLocal)
	edge := mgl32.TransformCoordinate(s.Position.Add(mgl32.Vec3{s.Radius, 0, 0}), toLocal)
	ctx.SetSpawn(at, edge.Sub(at).Len())

	count := s.Count
	if count < 0 {
		count = 0
	}
	ctx.NextSpawn(uint32(count))
}
