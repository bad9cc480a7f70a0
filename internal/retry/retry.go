// Package retry runs an operation with capped exponential backoff and jitter
// until it succeeds, fails permanently, runs out of attempts or the context
// ends. Errors are retried unless marked with Permanent.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Config configures the backoff schedule. The delay doubles from
// InitialBackoff up to MaxBackoff, plus or minus JitterPercent. MaxAttempts
// <= 0 means retry until the context is done.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterPercent  uint64
}

// DefaultConfig polls quickly at first and settles at a few seconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    0,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		JitterPercent:  10,
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the inner error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Func is one attempt.
type Func func(ctx context.Context) error

// Backoff builds the delay schedule for cfg.
func Backoff(cfg Config) goretry.Backoff {
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = DefaultConfig().InitialBackoff
	}

	b := goretry.NewExponential(initial)
	if cfg.MaxBackoff > 0 {
		b = goretry.WithCappedDuration(cfg.MaxBackoff, b)
	}
	if cfg.JitterPercent > 0 {
		b = goretry.WithJitterPercent(cfg.JitterPercent, b)
	}
	if cfg.MaxAttempts > 0 {
		b = goretry.WithMaxRetries(uint64(cfg.MaxAttempts-1), b)
	}
	return b
}

// Do calls fn until it returns nil or a Permanent error.
func Do(ctx context.Context, cfg Config, fn Func) error {
	var (
		attempts int
		lastErr  error
	)

	err := goretry.Do(ctx, Backoff(cfg), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p
		}
		lastErr = err
		return goretry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	var p *permanentError
	switch {
	case errors.As(err, &p):
		return p.err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return fmt.Errorf("operation cancelled: %w", joinLast(err, lastErr))
	default:
		return fmt.Errorf("failed after %d attempts: %w", attempts, err)
	}
}

func joinLast(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return errors.Join(ctxErr, last)
}
