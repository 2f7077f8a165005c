package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{10, 32 * time.Second},
	}

	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryDelay_HonoursRetryAfter(t *testing.T) {
	err := &entities.StageError{Stage: entities.StagePublish, Kind: entities.FailureRetryable, RetryAfter: 10 * time.Second}
	assert.Equal(t, 10*time.Second, retryDelay(err, 0))
	assert.Equal(t, 32*time.Second, retryDelay(err, 6), "longer backoff wins")
	assert.Equal(t, 2*time.Second, retryDelay(errors.New("plain"), 1))
}

func TestWithRetries(t *testing.T) {
	retryable := entities.Retryable(entities.StagePublish, errors.New("503"))
	fatal := entities.Fatal(entities.StagePublish, errors.New("409"))

	tests := []struct {
		name      string
		retries   int
		results   []error
		wantCalls int
		wantSleep []time.Duration
		wantErr   error
	}{
		{
			name:      "success first time",
			retries:   3,
			results:   []error{nil},
			wantCalls: 1,
		},
		{
			name:      "fatal is never retried",
			retries:   3,
			results:   []error{fatal},
			wantCalls: 1,
			wantErr:   fatal,
		},
		{
			name:      "retryable then success",
			retries:   3,
			results:   []error{retryable, retryable, nil},
			wantCalls: 3,
			wantSleep: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:      "retries exhausted",
			retries:   2,
			results:   []error{retryable, retryable, retryable, nil},
			wantCalls: 3,
			wantSleep: []time.Duration{time.Second, 2 * time.Second},
			wantErr:   retryable,
		},
		{
			name:      "no retries requested",
			retries:   0,
			results:   []error{retryable, nil},
			wantCalls: 1,
			wantErr:   retryable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			a := &app{sleep: func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			}}

			calls := 0
			err := a.withRetries(context.Background(), tt.retries, &interfaces.NoOpLogger{}, func() error {
				err := tt.results[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantSleep, slept)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWithRetries_InterruptedSleepKeepsClassification(t *testing.T) {
	a := &app{sleep: func(ctx context.Context, _ time.Duration) error { return context.Canceled }}
	retryable := entities.Retryable(entities.StagePublish, errors.New("503"))

	err := a.withRetries(context.Background(), 5, &interfaces.NoOpLogger{}, func() error { return retryable })
	assert.True(t, entities.IsRetryable(err))
	assert.Contains(t, err.Error(), "retry interrupted")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitFatal, exitCode(errors.New("boom")))
	assert.Equal(t, exitFatal, exitCode(entities.Fatal(entities.StageSign, errors.New("bad key"))))
	assert.Equal(t, exitUsage, exitCode(usageError(errors.New("bad flag"))))
	assert.Equal(t, exitUsage, exitCode(entities.Fatal(entities.StageSign, entities.MissingSecret("PRIVATE_KEY"))))
	assert.Equal(t, exitRetryExhausted, exitCode(entities.Retryable(entities.StagePublish, errors.New("503"))))
}
