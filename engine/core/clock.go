package core

import "time"

/**
 * @brief Measures wall time for the frame loop. Update samples the
 * elapsed time; a clock that was never started (or was stopped) keeps
 * its last sample.
 */
type Clock struct {
	start   time.Time
	elapsed time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Start resets the clock and begins measuring.
func (c *Clock) Start() {
	c.start = time.Now()
	c.elapsed = 0
}

// Update samples elapsed time. Call just before reading Elapsed.
func (c *Clock) Update() {
	if !c.start.IsZero() {
		c.elapsed = time.Since(c.start)
	}
}

// Stop halts measurement without resetting the elapsed time.
func (c *Clock) Stop() {
	c.start = time.Time{}
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}
