package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() *Options {
	return &Options{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		JitterMax:  time.Microsecond,
	}
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	e := NewExecutor(nil)
	calls := 0

	result, err := Do(context.Background(), e, OperationContext{Service: "svc", Operation: "op"}, fastOptions(),
		func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
	assert.Empty(t, e.RecentFailures())
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	e := NewExecutor(nil)
	calls := 0

	result, err := Do(context.Background(), e, OperationContext{Service: "svc", Operation: "op"}, fastOptions(),
		func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
	assert.Len(t, e.RecentFailures(), 2)
}

func TestDoRethrowsLastError(t *testing.T) {
	e := NewExecutor(nil)
	calls := 0

	_, err := Do(context.Background(), e, OperationContext{Service: "svc", Operation: "op", UserID: "u1"}, fastOptions(),
		func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("attempt %d failed", calls)
		})

	require.Error(t, err)
	// MaxRetries retries after the initial call.
	assert.Equal(t, 4, calls)
	assert.Equal(t, "attempt 4 failed", err.Error())

	audits := e.RecentFailures()
	require.Len(t, audits, 4)
	assert.Equal(t, "svc", audits[0].Service)
	assert.Equal(t, "u1", audits[0].UserID)
	assert.Equal(t, 0, audits[0].RetryCount)
	assert.Equal(t, 3, audits[3].RetryCount)
}

func TestDoAbortsOnContextCancel(t *testing.T) {
	e := NewExecutor(nil)
	ctx, cancel := context.WithCancel(context.Background())

	opts := &Options{
		MaxRetries: 5,
		BaseDelay:  time.Hour,
		MaxDelay:   time.Hour,
		JitterMax:  time.Microsecond,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, e, OperationContext{}, opts, func(ctx context.Context) (int, error) {
		return 0, errors.New("always fails")
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	opts := Options{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, backoffDelay(0, opts))
	assert.Equal(t, 2*time.Second, backoffDelay(1, opts))
	assert.Equal(t, 4*time.Second, backoffDelay(2, opts))
	assert.Equal(t, 8*time.Second, backoffDelay(3, opts))
	assert.Equal(t, 10*time.Second, backoffDelay(4, opts))
	// Shift overflow must still land on the cap.
	assert.Equal(t, 10*time.Second, backoffDelay(63, opts))
}

func TestAuditTrailCapped(t *testing.T) {
	e := NewExecutor(nil)
	opts := &Options{MaxRetries: 1, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond, JitterMax: time.Microsecond}

	for i := 0; i < 60; i++ {
		_, _ = Do(context.Background(), e, OperationContext{Service: "svc"}, opts,
			func(ctx context.Context) (int, error) {
				return 0, errors.New("boom")
			})
	}

	// 60 runs x 2 attempts = 120 failures, retained tail is 100.
	assert.Len(t, e.RecentFailures(), 100)
}

func TestJitterWithinBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		j := jitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, time.Second)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
