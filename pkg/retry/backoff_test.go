package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := &LinearBackoff{
		BaseDelay: 20 * time.Second,
		Increment: 20 * time.Second,
		MaxDelay:  time.Minute,
	}

	assert.Equal(t, 20*time.Second, backoff.NextDelay(1))
	assert.Equal(t, 40*time.Second, backoff.NextDelay(2))
	assert.Equal(t, time.Minute, backoff.NextDelay(5))
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 20 * time.Second}
	for attempt := 1; attempt <= 15; attempt++ {
		assert.Equal(t, 20*time.Second, backoff.NextDelay(attempt))
	}
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
}

func TestNewBackoff(t *testing.T) {
	b, err := NewBackoff("constant", 20*time.Second, 2, time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &ConstantBackoff{}, b)

	b, err = NewBackoff("", 20*time.Second, 2, time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &ConstantBackoff{}, b)

	b, err = NewBackoff("Linear", time.Second, 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, b.NextDelay(2))

	b, err = NewBackoff("exponential", time.Second, 2, time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &ExponentialBackoff{}, b)

	_, err = NewBackoff("fibonacci", time.Second, 2, time.Minute)
	assert.Error(t, err)
}
