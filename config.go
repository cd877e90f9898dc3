package ziti

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ziticore/ziti/layout"
	"github.com/ziticore/ziti/sim"
)

var ErrConfig = errors.New("ziti: invalid config")

type BackendKind string

const (
	BackendCPU BackendKind = "cpu"
	BackendGPU BackendKind = "gpu"
)

// Config describes one headless advection run.
type Config struct {
	Backend BackendKind `toml:"backend"`
	Debug   bool        `toml:"debug"`
	Frames  int         `toml:"frames"`

	// frame delta in seconds, 0 means wall clock
	FrameTime float64 `toml:"frame_time"`
	Speed     float32 `toml:"speed"`

	Particles ParticlesConfig `toml:"particles"`
	Field     FieldConfig     `toml:"field"`
	Spawner   SpawnerConfig   `toml:"spawner"`
}

type ParticlesConfig struct {
	Count            uint32     `toml:"count"`
	AdvectMultiplier float32    `toml:"advect_multiplier"`
	TimeDelta        float32    `toml:"time_delta"`
	MaxLifetime      float32    `toml:"max_lifetime"`
	SpawnRadius      float32    `toml:"spawn_radius"`
	BBMin            [3]float32 `toml:"bb_min"`
	BBMax            [3]float32 `toml:"bb_max"`
}

// FieldConfig is either a uniform velocity or explicit xyz triples, x fastest.
type FieldConfig struct {
	Dim      [3]int32   `toml:"dim"`
	Velocity [3]float32 `toml:"velocity"`
	Data     []float32  `toml:"data"`
}

type SpawnerConfig struct {
	Enabled  bool       `toml:"enabled"`
	Count    int        `toml:"count"`
	Radius   float32    `toml:"radius"`
	Position [3]float32 `toml:"position"`
}

func DefaultConfig() Config {
	sp := sim.DefaultSpawner()
	return Config{
		Backend:   BackendCPU,
		Frames:    600,
		FrameTime: 1.0 / 60,
		Speed:     1,
		Particles: ParticlesConfig{
			Count:            1024,
			AdvectMultiplier: 10,
			TimeDelta:        1.0 / 60,
			MaxLifetime:      10,
			SpawnRadius:      0.25,
			BBMin:            [3]float32{-1, -1, -1},
			BBMax:            [3]float32{1, 1, 1},
		},
		Field: FieldConfig{
			Dim:      [3]int32{8, 8, 8},
			Velocity: [3]float32{0, 0.01, 0},
		},
		Spawner: SpawnerConfig{
			Enabled: true,
			Count:   sp.Count,
			Radius:  sp.Radius,
		},
	}
}

// LoadConfig reads a TOML file over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendCPU, BackendGPU:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrConfig, c.Backend)
	}
	if c.Frames < 0 || c.FrameTime < 0 || c.Speed < 0 {
		return fmt.Errorf("%w: frames, frame_time and speed must not be negative", ErrConfig)
	}
	if c.Spawner.Count < 0 || c.Spawner.Radius < 0 {
		return fmt.Errorf("%w: negative spawner", ErrConfig)
	}
	ctx := c.ParticleContext()
	if err := ctx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, err := c.VelocityField(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// ParticleContext is the initial context, spawn range empty.
func (c Config) ParticleContext() layout.ParticleContext {
	p := c.Particles
	return layout.ParticleContext{
		AdvectMultiplier: p.AdvectMultiplier,
		TimeDelta:        p.TimeDelta,
		MaxLifetime:      p.MaxLifetime,
		BBMin:            p.BBMin,
		BBMax:            p.BBMax,
		VFieldDim:        c.Field.Dim,
		NumberParticles:  p.Count,
		SpawnAtRadius:    p.SpawnRadius,
	}
}

func (c Config) VelocityField() (*sim.VelocityField, error) {
	if len(c.Field.Data) > 0 {
		return sim.FieldFromFloats(c.Field.Dim, c.Field.Data)
	}
	return sim.UniformField(c.Field.Dim, c.Field.Velocity)
}

func (c Config) SpawnerDef() sim.Spawner {
	return sim.Spawner{
		Count:    c.Spawner.Count,
		Radius:   c.Spawner.Radius,
		Position: c.Spawner.Position,
	}
}

// FrameDuration is the fixed clock step, 0 for wall clock.
func (c Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameTime * float64(time.Second))
}
