package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockAdvance(t *testing.T) {
	clock := NewSimClock()
	assert.Equal(t, 0.0, clock.Now())

	now, err := clock.Advance(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, now)

	now, err = clock.Advance(1.5)
	require.NoError(t, err)
	assert.Equal(t, 2.0, now)
}

func TestClockRejectsNegativeAdvance(t *testing.T) {
	clock := NewSimClock()
	_, err := clock.Advance(2)
	require.NoError(t, err)

	_, err = clock.Advance(-1)
	var monotonicity *ClockMonotonicityError
	require.ErrorAs(t, err, &monotonicity)
	assert.Equal(t, 2.0, clock.Now(), "failed advance leaves time untouched")
}

func TestClockSet(t *testing.T) {
	clock := NewSimClock()
	require.NoError(t, clock.Set(3))
	assert.Equal(t, 3.0, clock.Now())

	// Setting to the current time is a no-op, not a violation.
	require.NoError(t, clock.Set(3))

	err := clock.Set(2)
	var monotonicity *ClockMonotonicityError
	require.ErrorAs(t, err, &monotonicity)
	assert.Equal(t, 3.0, monotonicity.Current)
	assert.Equal(t, 2.0, monotonicity.Requested)
}

func TestClockMessageCounter(t *testing.T) {
	clock := NewSimClock()
	assert.Equal(t, int64(0), clock.Messages())

	clock.CountMessage()
	clock.CountMessage()
	assert.Equal(t, int64(2), clock.Messages())
}
