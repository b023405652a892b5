// Package retry runs an operation a bounded number of times with a fixed
// linear backoff between attempts (delay × attempt).
package retry

import (
	"context"
	"errors"
	"time"
)

// PermanentError stops the retry loop immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error to indicate it should not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is permanent (should not be retried).
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including first attempt).
	// Default: 3
	MaxAttempts int

	// Delay is the base delay; attempt n waits Delay*n before attempt n+1.
	// Default: 100ms
	Delay time.Duration

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns a Config with the backup-copy defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
		sleep:       sleepContext,
	}
}

// Option is a functional option for configuring retries.
type Option func(*Config)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithDelay sets the base delay of the linear backoff.
func WithDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Delay = d
		}
	}
}

// WithOnRetry sets a callback function called before each retry.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// Retrier manages retry operations.
type Retrier struct {
	config Config
}

// New creates a new Retrier with the given options.
func New(opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

// Attempts returns the configured attempt limit.
func (r *Retrier) Attempts() int {
	return r.config.MaxAttempts
}

// Do executes the operation until it succeeds, returns a permanent error,
// the context ends or the attempts run out. The last error is returned.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context, attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return errors.Unwrap(err)
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.config.Delay * time.Duration(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if err := r.config.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
