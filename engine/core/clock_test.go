package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/astra/engine/core"
)

func TestClockMeasuresElapsedTime(t *testing.T) {
	clock := core.NewClock()
	assert.Equal(t, time.Duration(0), clock.Elapsed())

	// An unstarted clock never advances.
	clock.Update()
	assert.Equal(t, time.Duration(0), clock.Elapsed())

	clock.Start()
	time.Sleep(5 * time.Millisecond)
	clock.Update()
	first := clock.Elapsed()
	assert.Greater(t, first, time.Duration(0))

	// Stop freezes the last sample.
	clock.Stop()
	time.Sleep(5 * time.Millisecond)
	clock.Update()
	assert.Equal(t, first, clock.Elapsed())

	clock.Start()
	assert.Equal(t, time.Duration(0), clock.Elapsed())
}
