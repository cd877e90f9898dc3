package ziti

import (
	"time"
)

// Clock tracks frame time. A zero Step measures wall time between ticks,
// otherwise every tick advances by Step.
type Clock struct {
	Time time.Time
	Dt   time.Duration
	Step time.Duration
}

func NewClock(step time.Duration) *Clock {
	return &Clock{Time: time.Now(), Step: step}
}

// Tick advances the clock and returns the frame delta in seconds.
func (c *Clock) Tick() float32 {
	if c.Step > 0 {
		c.Dt = c.Step
		c.Time = c.Time.Add(c.Step)
	} else {
		now := time.Now()
		c.Dt = now.Sub(c.Time)
		c.Time = now
	}
	return float32(c.Dt.Seconds())
}

// AdvectionSettings are shared by every advection target of a scene.
type AdvectionSettings struct {
	// Speed scales frame time into simulation time.
	Speed float32
}
