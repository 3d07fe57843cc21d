// Package resilience guards calls to unreliable dependencies with a
// per-operation circuit breaker. Every call is a single attempt.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fjacquet/csv-ingest/internal/logging"

	"github.com/sony/gobreaker/v2"
)

// FailureFilter reports whether err counts against the breaker. Errors that
// do not count are still returned to the caller.
type FailureFilter func(err error) bool

// Executor runs operations behind one circuit breaker per operation name.
type Executor struct {
	cfg    Config
	logger logging.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewExecutor creates an executor. A nil logger discards state changes.
func NewExecutor(cfg Config, logger logging.Logger) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn once for operation. While the breaker is open fn is not
// called and the breaker error is returned. A nil filter counts every error.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	counts FailureFilter,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if counts == nil {
		counts = countAll
	}

	breaker := e.circuitBreaker(op, counts)
	_, err := breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// State returns the breaker state of operation, closed when none exists yet.
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if breaker, ok := e.breakers[operation]; ok {
		return breaker.State()
	}
	return gobreaker.StateClosed
}

func (e *Executor) circuitBreaker(operation string, counts FailureFilter) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !counts(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if e.logger != nil {
				e.logger.Warn("Circuit breaker state changed",
					logging.F(logging.FieldOperation, name),
					logging.F("from", from.String()),
					logging.F("to", to.String()))
			}
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

// IsCircuitOpen reports whether err was produced by an open or saturated
// breaker rather than by the operation.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func countAll(error) bool { return true }
