package ziti

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/sim"
)

// Stats summarises a headless run.
type Stats struct {
	Frames  int
	Skipped int
	Alive   int
}

// Run builds a single target scene from cfg and steps it cfg.Frames times.
func Run(ctx context.Context, cfg Config, backend Backend, log Logger) (Stats, error) {
	if log == nil {
		log = NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	field, err := cfg.VelocityField()
	if err != nil {
		return Stats{}, err
	}

	scene := NewScene(backend, log)
	defer scene.Release()
	scene.Settings.Speed = cfg.Speed

	a, err := scene.AddAdvection(cfg.ParticleContext(), field, nil, mgl32.Ident4())
	if err != nil {
		return Stats{}, err
	}
	if cfg.Spawner.Enabled {
		if _, err := scene.AddSpawner(a.ID, cfg.SpawnerDef(), mgl32.Ident4()); err != nil {
			return Stats{}, err
		}
	}

	clock := NewClock(cfg.FrameDuration())
	for frame := 0; frame < cfg.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return stats(a, nil), err
		}
		if err := scene.Update(clock.Tick()); err != nil {
			return stats(a, nil), err
		}
		if log.DebugEnabled() && frame%60 == 0 {
			log.Debugf("frame %d: %v", frame, a.Part())
		}
	}

	ps, err := a.Particles()
	if err != nil {
		return stats(a, nil), err
	}
	st := stats(a, ps)
	log.Infof("%s: %d frames, %d skipped, %d of %d particles alive",
		backend.Name(), st.Frames, st.Skipped, st.Alive, len(ps))
	return st, nil
}

func stats(a *Advection, ps []layout.AParticle) Stats {
	return Stats{Frames: a.Frames, Skipped: a.Skipped, Alive: sim.Alive(ps)}
}
