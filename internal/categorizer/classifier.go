package categorizer

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/csv-ingest/internal/parsererror"
)

// Classifier is the external classification service.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (Reply, error)
}

// UnavailableClassifier stands in when no external service is configured.
type UnavailableClassifier struct {
	Reason string
}

// Classify always fails with ErrClassifierUnavailable.
func (u UnavailableClassifier) Classify(context.Context, string) (Reply, error) {
	if u.Reason == "" {
		return Reply{}, parsererror.ErrClassifierUnavailable
	}
	return Reply{}, fmt.Errorf("%w: %s", parsererror.ErrClassifierUnavailable, u.Reason)
}

// classifyCallError maps a transport error to a classifier sentinel.
func classifyCallError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", parsererror.ErrClassifierTimeout, err)
	}
	return fmt.Errorf("%w: %w", parsererror.ErrClassifierUnavailable, err)
}
