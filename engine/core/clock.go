package core

import "time"

// Clock measures elapsed seconds since Start.
type Clock struct {
	startTime time.Time
	elapsed   float64
	now       func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Updates the clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = c.now().Sub(c.startTime).Seconds()
	}
}

// Starts the clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.elapsed = 0
}

// Stops the clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
