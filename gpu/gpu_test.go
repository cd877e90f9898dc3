package gpu

import (
	"os"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziticore/ziti/glyph"
	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/sim"
)

func TestNextMultipleOf(t *testing.T) {
	assert.Equal(t, uint32(0), NextMultipleOf(0, 32))
	assert.Equal(t, uint32(32), NextMultipleOf(1, 32))
	assert.Equal(t, uint32(32), NextMultipleOf(32, 32))
	assert.Equal(t, uint32(64), NextMultipleOf(33, 32))
	assert.Equal(t, uint32(7), NextMultipleOf(7, 0))
}

func TestWorkgroupCount(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 1, 31: 1, 32: 1, 33: 2, 1000: 32}
	for threads, want := range cases {
		assert.Equal(t, want, WorkgroupCount(threads), "threads=%d", threads)
	}
}

func TestAlignedSize(t *testing.T) {
	assert.Equal(t, uint64(4), AlignedSize(0))
	assert.Equal(t, uint64(4), AlignedSize(3))
	assert.Equal(t, uint64(8), AlignedSize(6))
	assert.Equal(t, uint64(72), AlignedSize(72))
	// cube indices: 36 * 2 bytes
	assert.Equal(t, uint64(72), AlignedSize(len(glyph.Cube().Indices)*2))
}

// Device tests need an adapter; set ZITI_GPU_TESTS=1 to run them.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	if os.Getenv("ZITI_GPU_TESTS") == "" {
		t.Skip("ZITI_GPU_TESTS not set")
	}
	gc, err := NewContext(nil)
	require.NoError(t, err)
	t.Cleanup(gc.Release)
	return gc
}

func testParticleContext() layout.ParticleContext {
	c := layout.ParticleContext{
		AdvectMultiplier: 1,
		TimeDelta:        0.1,
		MaxLifetime:      10,
		BBMin:            layout.PackedFloat3{-1, -1, -1},
		BBMax:            layout.PackedFloat3{1, 1, 1},
		VFieldDim:        layout.PackedInt3{2, 2, 2},
		NumberParticles:  64,
	}
	c.SetSpawn(mgl32.Vec3{}, 0.25)
	c.NextSpawn(16)
	return c
}

func TestAdvectorMatchesHost(t *testing.T) {
	gc := newTestContext(t)
	pc := testParticleContext()
	field, err := sim.UniformField(pc.VFieldDim, mgl32.Vec3{0.5, 0, 0})
	require.NoError(t, err)

	a, err := NewAdvector(gc, pc, field)
	require.NoError(t, err)
	defer a.Release()

	ran, err := a.Step(&pc, nil)
	require.NoError(t, err)
	require.True(t, ran)

	got, err := a.ReadParticles()
	require.NoError(t, err)

	want := make([]layout.AParticle, pc.NumberParticles)
	inst := make([]glyph.Instance, pc.NumberParticles)
	require.NoError(t, sim.Advect(&pc, want, field, inst))

	for i := range want {
		assert.InDelta(t, want[i].Lifetime, got[i].Lifetime, 1e-5, "particle %d", i)
		assert.InDeltaSlice(t, want[i].Position[:], got[i].Position[:], 1e-4, "particle %d", i)
	}
}

func TestGlyphInstancesMatchesHost(t *testing.T) {
	gc := newTestContext(t)
	pc := testParticleContext()
	field, err := sim.UniformField(pc.VFieldDim, mgl32.Vec3{})
	require.NoError(t, err)

	a, err := NewAdvector(gc, pc, field)
	require.NoError(t, err)
	defer a.Release()

	cube := glyph.Cube()
	gi, err := NewGlyphInstances(gc, cube, pc.NumberParticles)
	require.NoError(t, err)
	defer gi.Release()

	_, err = a.Step(&pc, gi)
	require.NoError(t, err)

	instances, err := a.ReadInstances()
	require.NoError(t, err)
	wantVerts, wantIdx, err := glyph.Splat(cube, instances)
	require.NoError(t, err)

	gotIdx, err := gi.ReadIndices()
	require.NoError(t, err)
	assert.Equal(t, wantIdx, gotIdx)

	gotVerts, err := gi.ReadVertices()
	require.NoError(t, err)
	require.Len(t, gotVerts, len(wantVerts))
	for i := range wantVerts {
		assert.InDeltaSlice(t, wantVerts[i].Position[:], gotVerts[i].Position[:], 1e-4, "vertex %d", i)
		assert.InDeltaSlice(t, wantVerts[i].Normal[:], gotVerts[i].Normal[:], 1e-4, "vertex %d", i)
		assert.Equal(t, wantVerts[i].UV, gotVerts[i].UV, "vertex %d", i)
	}
	assert.Equal(t, len(wantIdx), gi.Part(glyph.Empty()).IndexCount)
}

func TestUploadParticlesRoundTrip(t *testing.T) {
	gc := newTestContext(t)
	pc := testParticleContext()
	field, err := sim.UniformField(pc.VFieldDim, mgl32.Vec3{})
	require.NoError(t, err)

	a, err := NewAdvector(gc, pc, field)
	require.NoError(t, err)
	defer a.Release()

	want := make([]layout.AParticle, pc.NumberParticles)
	for i := range want {
		f := float32(i)
		want[i].Position = layout.PackedFloat3{f, -f, f * 0.5}
		want[i].Lifetime = f + 0.25
	}
	require.NoError(t, a.UploadParticles(want))

	got, err := a.ReadParticles()
	require.NoError(t, err)
	assert.Equal(t, layout.Bytes(want), layout.Bytes(got))

	assert.Error(t, a.UploadParticles(want[:1]))
}

func TestInflightTracksOwnSubmission(t *testing.T) {
	var a, b inflight
	polls := 0
	stillRunning := func() bool { polls++; return false }

	assert.False(t, a.busy(stillRunning))
	assert.Zero(t, polls, "idle tracker must not poll")

	a.submitted()
	b.submitted()
	a.done(wgpu.QueueWorkDoneStatusSuccess)

	// b's work keeps the device busy but a's submission is complete.
	assert.False(t, a.busy(stillRunning))
	assert.True(t, b.busy(stillRunning))
	assert.Equal(t, 1, polls)

	b.done(wgpu.QueueWorkDoneStatusSuccess)
	assert.False(t, b.busy(stillRunning))
}

func TestAdvectorBusyIsPerTarget(t *testing.T) {
	gc := newTestContext(t)
	pc := testParticleContext()
	field, err := sim.UniformField(pc.VFieldDim, mgl32.Vec3{})
	require.NoError(t, err)

	a, err := NewAdvector(gc, pc, field)
	require.NoError(t, err)
	defer a.Release()
	b, err := NewAdvector(gc, pc, field)
	require.NoError(t, err)
	defer b.Release()

	ran, err := a.Step(&pc, nil)
	require.NoError(t, err)
	require.True(t, ran)
	assert.False(t, b.Busy())

	gc.Wait()
	assert.False(t, a.Busy())
}
