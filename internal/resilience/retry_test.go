package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDo_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls int
	err := Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("busy"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	t.Parallel()

	var calls int
	err := Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return errors.New("not found")
	})
	require.EqualError(t, err, "not found")
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var retries []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, _ error) { retries = append(retries, attempt) }

	err := Do(context.Background(), p, func(context.Context) error {
		return Transient(errors.New("busy"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, Policy{Attempts: 5, Backoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return Transient(errors.New("busy"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal(t *testing.T) {
	t.Parallel()

	var calls int
	v, err := DoVal(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Transient(errors.New("reset"), 0)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	v, err = DoVal(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		return "partial", errors.New("bad")
	})
	require.Error(t, err)
	assert.Empty(t, v)
}

func TestPolicyDelay(t *testing.T) {
	t.Parallel()

	p := Policy{Backoff: 100 * time.Millisecond, MaxBackoff: time.Second}.normalized()
	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 400*time.Millisecond, p.delay(2))
	assert.Equal(t, time.Second, p.delay(6))

	p.Jitter = 0.5
	for range 20 {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}
