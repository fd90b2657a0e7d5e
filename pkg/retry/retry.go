package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	clog "github.com/xrsl/wfsync/pkg/log"
)

// Config holds retry configuration
type Config struct {
	MaxRetries  int           // Retries after the first attempt; 0 disables retrying
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
	Multiplier  float64       // Multiplier for exponential backoff
	JitterRatio float64       // Jitter ratio (0-1) to add randomness
}

// DefaultConfig returns the backoff shape used for template fetches.
// MaxRetries stays at zero so a failed request ends the run unless the
// user opts in through configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  0,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		JitterRatio: 0.1,
	}
}

// WithRetries returns a copy of c allowing n retries.
func (c Config) WithRetries(n int) Config {
	c.MaxRetries = n
	return c
}

// RetryableError wraps an error that should trigger a retry
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// Retryable wraps an error to indicate it should be retried
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. Errors marked with Retryable are unwrapped before return.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	op := func() (T, error) {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			clog.Debug("non-retryable error", "error", err)
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	attempt := 0
	notify := func(err error, delay time.Duration) {
		attempt++
		clog.Debug("retrying after error",
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
			"error", err,
		)
	}

	var b backoff.BackOff = cfg.backOff()
	b = backoff.WithMaxRetries(b, uint64(max(cfg.MaxRetries, 0)))
	result, err := backoff.RetryNotifyWithData(op, backoff.WithContext(b, ctx), notify)
	if err != nil {
		var retryable *RetryableError
		if errors.As(err, &retryable) {
			return result, retryable.Err
		}
		return result, err
	}
	return result, nil
}

// backOff builds the exponential schedule described by c.
func (c Config) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.BaseDelay
	b.MaxInterval = c.MaxDelay
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = c.JitterRatio
	// Attempts are bounded by MaxRetries, not wall time.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
