package state

import (
	"sync/atomic"
	"time"
)

// Clock stamps shape states and actions.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// StepClock advances by a fixed step on every reading, starting at Base.
// Readings are strictly increasing even under concurrent use.
type StepClock struct {
	Base time.Time
	Step time.Duration
	tick int64
}

func (c *StepClock) Now() time.Time {
	n := atomic.AddInt64(&c.tick, 1)
	step := c.Step
	if step == 0 {
		step = time.Millisecond
	}
	return c.Base.Add(time.Duration(n) * step)
}
