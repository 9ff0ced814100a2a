package kws

import "time"

// Clock supplies the millisecond timestamps fed to the posterior handler.
// Successive readings must not decrease.
type Clock interface {
	NowMs() uint64
}

// MonotonicClock counts milliseconds since it was created, using the
// monotonic reading of time.Now.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMs implements Clock.
func (c *MonotonicClock) NowMs() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

// Start returns the wall time the clock reads zero at.
func (c *MonotonicClock) Start() time.Time {
	return c.start
}
