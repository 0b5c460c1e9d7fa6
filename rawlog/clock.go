package rawlog

import (
	"sync"
	"time"
)

// Clock supplies the current time.  In production it's the system clock, in
// tests a StoppedClock that returns whatever time the test sets.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock that returns the system time.
type SystemClock struct{}

// Now returns the system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// StoppedClock is a Clock that always returns the same time until it's set
// to another.
type StoppedClock struct {
	mutex sync.Mutex
	t     time.Time
}

// This is a compile-time check that StoppedClock implements Clock.
var _ Clock = (*StoppedClock)(nil)

// NewStoppedClock creates a StoppedClock set to the given time.
func NewStoppedClock(t time.Time) *StoppedClock {
	return &StoppedClock{t: t}
}

// SetTime sets the time that Now returns.
func (c *StoppedClock) SetTime(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.t = t
}

// Now returns the time that was last set.
func (c *StoppedClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.t
}
