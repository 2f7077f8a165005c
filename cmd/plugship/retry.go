package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
)

const (
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
)

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// retryDelay honours a server-provided Retry-After when it is longer than the backoff
func retryDelay(err error, attempt int) time.Duration {
	delay := calculateBackoff(attempt)
	var stageErr *entities.StageError
	if errors.As(err, &stageErr) && stageErr.RetryAfter > delay {
		delay = stageErr.RetryAfter
	}
	return delay
}

// withRetries calls fn once and then up to retries more times while it
// fails with a retryable error. Fatal errors return immediately.
func (a *app) withRetries(ctx context.Context, retries int, logger interfaces.Logger, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !entities.IsRetryable(err) || attempt >= retries {
			return err
		}

		delay := retryDelay(err, attempt)
		logger.Warn("retryable failure, backing off",
			interfaces.F("attempt", attempt+1),
			interfaces.F("delay", delay),
			interfaces.F("error", err))

		if sleepErr := a.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("%w (retry interrupted: %v)", err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
