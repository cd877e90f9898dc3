package sim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ziticore/ziti/layout"
)

// pcg is the PCG hash also used by advect.wgsl.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func unit(h uint32) float32 { return float32(h) / 4294967295.0 }

// SpawnPoint is where particle i is (re)born: a hashed, uniformly
// distributed point in the spawn ball. The seed mixes in the spawn range
// start so consecutive waves land in different places.
func SpawnPoint(ctx *layout.ParticleContext, i uint32) mgl32.Vec3 {
	h0 := pcg(i ^ pcg(ctx.SpawnRangeStart))
	h1 := pcg(h0)
	h2 := pcg(h1)

	z := 1 - 2*unit(h0)
	phi := 2 * math32.Pi * unit(h1)
	r := math32.Sqrt(max(0, 1-z*z))
	radius := ctx.SpawnAtRadius * math32.Pow(unit(h2), 1.0/3.0)

	dir := mgl32.Vec3{r * math32.Cos(phi), r * math32.Sin(phi), z}
	return ctx.SpawnAt.Vec3().Add(dir.Mul(radius))
}
