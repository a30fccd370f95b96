package bank

import (
	"errors"
	"sync"
	"time"
)

var ErrClockRewind = errors.New("bank: clock cannot move backwards")

// Clock supplies the current unix time in seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock only moves when told to. It never moves backwards.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, truncated to whole seconds.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now += int64(d / time.Second)
	c.mu.Unlock()
}

// Set jumps to ts.
func (c *ManualClock) Set(ts int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts < c.now {
		return ErrClockRewind
	}
	c.now = ts
	return nil
}
