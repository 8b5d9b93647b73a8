// Package retry implements retry with exponential backoff for catalog
// listing requests. Download jobs are deliberately not retried within a run;
// their resumability comes from the persisted fetched flags.
package retry

import (
	"time"

	errs "pixivsync/pkg/errors"
	"pixivsync/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay
	MaxDelay time.Duration
	// Multiplier grows the delay after each attempt
	Multiplier float64
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		RetryIf:      DefaultRetryIf,
	}
}

// DefaultRetryIf retries remote errors whose status code is transient and
// anything without a known category.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*errs.Error); ok {
		if e.Type != errs.ErrorTypeRemote {
			return false
		}
		return errs.IsRetryableStatusCode(e.Code)
	}
	return true
}

// Do executes the operation, retrying on retryable failures with
// exponential backoff. The last error is returned when attempts run out.
func Do(operation Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !retryIf(lastErr) {
			return lastErr
		}

		log.WarnWithFields("Operation failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
			"error":   lastErr.Error(),
		})
		time.Sleep(delay)

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
