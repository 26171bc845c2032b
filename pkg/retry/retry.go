// Package retry implements bounded exponential backoff with jitter. The
// ingestion pipeline uses it around embedding batches, where transient
// provider errors are common and the work is offline.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	JitterFraction  float64
	RetryableErrors []error // empty means every error is retryable
	Logger          *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         zap.NewNop(),
	}
}

func (cfg *Config) normalize() {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// Do runs op until it succeeds, a non-retryable error occurs, the attempt
// budget is spent, or ctx is cancelled.
func Do(ctx context.Context, cfg Config, op func() error) error {
	cfg.normalize()

	var lastErr error
	backoff := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			if attempt > 1 {
				cfg.Logger.Info("Recovered after retry", zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		if !retryable(err, cfg.RetryableErrors) {
			cfg.Logger.Debug("Giving up on non-retryable error",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		cfg.Logger.Warn("Attempt failed, backing off",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered(backoff, cfg.JitterFraction)):
		}

		backoff = time.Duration(math.Min(float64(cfg.MaxDelay), float64(backoff)*cfg.Multiplier))
	}

	return lastErr
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = op()
		return err
	})
	return result, err
}

func retryable(err error, allowed []error) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	offset := time.Duration(rand.Float64() * float64(d) * fraction)
	if rand.Intn(2) == 0 {
		return d - offset
	}
	return d + offset
}
