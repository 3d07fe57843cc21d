package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/csv-ingest/internal/logging"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteMakesSingleAttempt(t *testing.T) {
	exec := NewExecutor(DefaultConfig(), nil)

	attempts := 0
	errBoom := errors.New("boom")
	err := exec.Execute(context.Background(), "classify", func(context.Context) error {
		attempts++
		return errBoom
	}, nil)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, attempts)
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	logger := logging.NewMockLogger()
	exec := NewExecutor(Config{
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}, logger)

	errTemp := errors.New("temporary")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, nil)
		require.ErrorIs(t, err, errTemp, "iteration %d", i)
	}

	called := false
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	}, nil)

	assert.False(t, called)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsCircuitOpen(err))
	assert.Equal(t, gobreaker.StateOpen, exec.State("op"))
	assert.True(t, logger.HasEntry("WARN", "Circuit breaker state changed"))
}

func TestExecuteIgnoresUncountedFailures(t *testing.T) {
	exec := NewExecutor(Config{
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.1,
	}, nil)

	errMalformed := errors.New("malformed")
	for i := 0; i < 3; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errMalformed
		}, func(error) bool { return false })
		assert.ErrorIs(t, err, errMalformed)
	}
	assert.Equal(t, gobreaker.StateClosed, exec.State("op"))
}

func TestExecuteSeparatesOperations(t *testing.T) {
	exec := NewExecutor(Config{BreakerMinRequests: 1, BreakerFailureRatio: 0.5}, nil)

	_ = exec.Execute(context.Background(), "a", func(context.Context) error { return errors.New("down") }, nil)
	assert.Equal(t, gobreaker.StateOpen, exec.State("a"))
	assert.Equal(t, gobreaker.StateClosed, exec.State("b"))
	assert.NoError(t, exec.Execute(context.Background(), "b", func(context.Context) error { return nil }, nil))
}

func TestExecuteRejectsNilCallback(t *testing.T) {
	exec := NewExecutor(DefaultConfig(), nil)
	assert.Error(t, exec.Execute(context.Background(), "op", nil, nil))
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "op", func(context.Context) error {
		called = true
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestConfigNormalize(t *testing.T) {
	got := Config{BreakerFailureRatio: 2}.normalize()
	assert.Equal(t, DefaultConfig(), got)
}

func TestIsCircuitOpen(t *testing.T) {
	assert.True(t, IsCircuitOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsCircuitOpen(errors.New("other")))
	assert.False(t, IsCircuitOpen(nil))
}
