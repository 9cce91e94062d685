package chain

import (
	"sync/atomic"
	"time"
)

// Clock is the time oracle. Now returns unix seconds and is read once per
// operation.
type Clock interface {
	Now() int64
}

type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock only moves when told to.
type ManualClock struct {
	now atomic.Int64
}

func NewManualClock(now int64) *ManualClock {
	clock := &ManualClock{}
	clock.now.Store(now)
	return clock
}

func (c *ManualClock) Now() int64 { return c.now.Load() }

func (c *ManualClock) Set(now int64) { c.now.Store(now) }

func (c *ManualClock) Advance(seconds int64) int64 { return c.now.Add(seconds) }
