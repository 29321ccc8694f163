// Package resilience retries transient failures of remote input downloads
// and store connections.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// Attempts is the total number of tries including the first. Default 3.
	Attempts int `yaml:"attempts" mapstructure:"attempts"`

	// Backoff is the delay before the first retry. Default 500ms.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff"`

	// MaxBackoff caps the delay between tries. Default 30s.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`

	// Jitter spreads each delay by up to this fraction in both directions.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`

	// Retryable decides whether an error is worth another try. Nil means
	// IsTransient.
	Retryable func(err error) bool `yaml:"-" mapstructure:"-"`

	// OnRetry is called before each sleep.
	OnRetry func(attempt int, err error) `yaml:"-" mapstructure:"-"`
}

// DefaultPolicy returns the policy used for downloads.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
		Jitter:     0.25,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Do runs fn until it succeeds, fails permanently, the attempts are used up
// or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for operations that produce a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
	return zero, err
}

// delay doubles the backoff per attempt up to MaxBackoff and applies jitter.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt))
	d = math.Min(d, float64(p.MaxBackoff))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// LogRetries returns an OnRetry callback that logs each retry of op.
func LogRetries(op string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
