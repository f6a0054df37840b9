// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/bulkctl/bulkctl/internal/errors"
)

type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Client retries idempotent calls with exponential backoff. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	config *Config
	logger *slog.Logger
}

func NewClient(config *Config, logger *slog.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		logger: logger,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or attempts run out
func Do[T any](ctx context.Context, c *Client, fn func() (T, error)) (T, error) {
	var zero T
	delay := c.config.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.IsRetryable(err) {
			c.logger.Debug("error is not retryable", "error", err)
			return zero, fmt.Errorf("permanent error: %w", err)
		}

		if attempt == c.config.MaxAttempts {
			c.logger.Debug("giving up", "attempts", c.config.MaxAttempts, "error", err)
			return zero, fmt.Errorf("giving up after %d attempts: %w", c.config.MaxAttempts, lastErr)
		}

		jitter := time.Duration(rand.Float64() * c.config.Jitter * float64(delay))
		actualDelay := delay + jitter

		c.logger.Debug("attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", c.config.MaxAttempts,
			"delay", actualDelay,
			"error", err)

		timer := time.NewTimer(actualDelay)
		select {
		case <-timer.C:
			delay = time.Duration(float64(delay) * c.config.Multiplier)
			if delay > c.config.MaxDelay {
				delay = c.config.MaxDelay
			}
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
