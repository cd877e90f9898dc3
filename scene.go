package ziti

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/ziticore/ziti/glyph"
	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/sim"
)

type EntityID = uuid.UUID

var (
	ErrUnknownEntity = errors.New("ziti: unknown entity")
	ErrSpawnerExists = errors.New("ziti: advection target already has a spawner")
)

// Advection is a particle system living in the space of Transform.
type Advection struct {
	ID        EntityID
	Context   layout.ParticleContext
	Transform mgl32.Mat4
	Glyph     *glyph.Description

	// Frames counts steps that ran, Skipped those dropped while busy.
	Frames  int
	Skipped int

	runner Runner
}

// Particles returns the current particle state.
func (a *Advection) Particles() ([]layout.AParticle, error) { return a.runner.Particles() }

// Part is the drawable range of the last frame.
func (a *Advection) Part() glyph.Part { return a.runner.Part() }

// SpawnerEntity emits into one advection target. Transform places it in the world.
type SpawnerEntity struct {
	ID        EntityID
	Target    EntityID
	Spawner   sim.Spawner
	Transform mgl32.Mat4
}

// Scene runs the spawn system and then the advection system every frame.
type Scene struct {
	Settings AdvectionSettings

	log        Logger
	backend    Backend
	advections []*Advection
	spawners   map[EntityID]*SpawnerEntity
}

func NewScene(backend Backend, log Logger) *Scene {
	if log == nil {
		log = NewNopLogger()
	}
	return &Scene{
		Settings: AdvectionSettings{Speed: 1},
		log:      log,
		backend:  backend,
		spawners: make(map[EntityID]*SpawnerEntity),
	}
}

// AddAdvection creates a target using the backend of the scene.
func (s *Scene) AddAdvection(ctx layout.ParticleContext, field *sim.VelocityField, g *glyph.Description, transform mgl32.Mat4) (*Advection, error) {
	if g == nil {
		g = glyph.Cube()
	}
	r, err := s.backend.NewRunner(ctx, field, g)
	if err != nil {
		return nil, fmt.Errorf("failed to create advection: %w", err)
	}
	a := &Advection{
		ID:        uuid.New(),
		Context:   ctx,
		Transform: transform,
		Glyph:     g,
		runner:    r,
	}
	s.advections = append(s.advections, a)
	s.log.Debugf("scene: advection %s with %d particles on %s", a.ID, ctx.NumberParticles, s.backend.Name())
	return a, nil
}

func (s *Scene) Advection(id EntityID) (*Advection, bool) {
	for _, a := range s.advections {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

func (s *Scene) Advections() []*Advection { return s.advections }

// AddSpawner attaches sp to target. A target takes one spawner.
func (s *Scene) AddSpawner(target EntityID, sp sim.Spawner, transform mgl32.Mat4) (EntityID, error) {
	if _, ok := s.Advection(target); !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownEntity, target)
	}
	for _, e := range s.spawners {
		if e.Target == target {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrSpawnerExists, target)
		}
	}
	e := &SpawnerEntity{ID: uuid.New(), Target: target, Spawner: sp, Transform: transform}
	s.spawners[e.ID] = e
	return e.ID, nil
}

func (s *Scene) RemoveSpawner(id EntityID) bool {
	if _, ok := s.spawners[id]; !ok {
		return false
	}
	delete(s.spawners, id)
	return true
}

// Update advances every target by dt seconds of frame time.
func (s *Scene) Update(dt float32) error {
	s.spawnSystem()
	return s.advectionSystem(dt)
}

func (s *Scene) spawnSystem() {
	byTarget := make(map[EntityID]*SpawnerEntity, len(s.spawners))
	for _, e := range s.spawners {
		if _, ok := s.Advection(e.Target); !ok {
			s.log.Warnf("scene: spawner %s lost its target, removing", e.ID)
			delete(s.spawners, e.ID)
			continue
		}
		byTarget[e.Target] = e
	}
	for _, a := range s.advections {
		e, ok := byTarget[a.ID]
		if !ok {
			// advance past the last wave so it is not respawned again
			a.Context.NextSpawn(0)
			continue
		}
		// spawner position in the local space of the target
		toLocal := a.Transform.Inv().Mul4(e.Transform)
		e.Spawner.Apply(&a.Context, toLocal)
	}
}

func (s *Scene) advectionSystem(dt float32) error {
	var errs []error
	for _, a := range s.advections {
		a.Context.TimeDelta = s.Settings.Speed * dt
		ran, err := a.runner.Step(&a.Context)
		if err != nil {
			errs = append(errs, fmt.Errorf("advection %s: %w", a.ID, err))
			continue
		}
		if !ran {
			a.Skipped++
			continue
		}
		a.Frames++
	}
	return errors.Join(errs...)
}

func (s *Scene) Release() {
	for _, a := range s.advections {
		a.runner.Release()
	}
	s.advections = nil
	clear(s.spawners)
}
