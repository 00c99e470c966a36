package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsAndFallsBack(t *testing.T) {
	b := NewCircuitBreaker(Settings{
		Name:             "reputation-test-trip",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, func(ctx context.Context, err error) (interface{}, error) {
		return "cached", nil
	})

	failing := func(ctx context.Context) (interface{}, error) { return nil, errUpstream }

	for i := 0; i < 2; i++ {
		_, err := b.Execute(context.Background(), failing)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	result, err := b.Execute(context.Background(), failing)
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	b := NewCircuitBreaker(Settings{Name: "reputation-test-cancel", FailureThreshold: 1}, nil)

	_, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, context.Canceled
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestCircuitBreaker_OpenWithNoopFallback(t *testing.T) {
	b := NewCircuitBreaker(Settings{Name: "reputation-test-noop", Timeout: time.Minute, FailureThreshold: 1}, NoopFallback)

	_, _ = b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) { return nil, errUpstream })
	_, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) { return "unreached", nil })

	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRetryWithBreaker_StopsWhenOpen(t *testing.T) {
	b := NewCircuitBreaker(Settings{Name: "reputation-test-retry", Timeout: time.Minute, FailureThreshold: 1}, NoopFallback)
	calls := 0

	_, err := RetryWithBreaker(context.Background(), fastRetryConfig(), b, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errUpstream
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, calls)
}

func TestBuildSettings_Defaults(t *testing.T) {
	s := BuildSettings("reputation", 0, 0, 0, 0)

	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)
}
