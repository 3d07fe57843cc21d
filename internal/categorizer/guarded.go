package categorizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/csv-ingest/internal/parsererror"
	"fjacquet/csv-ingest/internal/resilience"

	"golang.org/x/time/rate"
)

const classifierOperation = "external_classifier"

// GuardedClassifier rate-limits calls to the wrapped classifier, bounds each
// call with a timeout and trips a circuit breaker on repeated failures.
// It never retries within a call.
type GuardedClassifier struct {
	next     Classifier
	limiter  *rate.Limiter
	timeout  time.Duration
	executor *resilience.Executor
}

// NewGuardedClassifier wraps next. requestsPerMinute <= 0 disables the
// limiter and timeout <= 0 disables the per-call deadline.
func NewGuardedClassifier(next Classifier, requestsPerMinute int, timeout time.Duration, executor *resilience.Executor) *GuardedClassifier {
	g := &GuardedClassifier{next: next, timeout: timeout, executor: executor}
	if requestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return g
}

// Classify waits for a rate slot, then calls the wrapped classifier under
// the breaker.
func (g *GuardedClassifier) Classify(ctx context.Context, prompt string) (Reply, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Reply{}, fmt.Errorf("%w: rate limiter: %v", parsererror.ErrClassifierUnavailable, err)
		}
	}

	var reply Reply
	call := func(ctx context.Context) error {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		r, err := g.next.Classify(callCtx, prompt)
		if err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, parsererror.ErrClassifierTimeout) {
				return fmt.Errorf("%w: %v", parsererror.ErrClassifierTimeout, err)
			}
			return err
		}
		reply = r
		return nil
	}

	if g.executor == nil {
		return reply, call(ctx)
	}
	err := g.executor.Execute(ctx, classifierOperation, call, countsAsFailure)
	if resilience.IsCircuitOpen(err) {
		return Reply{}, fmt.Errorf("%w: circuit open: %v", parsererror.ErrClassifierUnavailable, err)
	}
	return reply, err
}

// countsAsFailure counts transport failures against the breaker. A
// malformed reply means the service answered.
func countsAsFailure(err error) bool {
	return !errors.Is(err, parsererror.ErrClassifierMalformedReply) && !errors.Is(err, context.Canceled)
}
