package categorizer

import (
	"context"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// CategorizationStrategy is one tier of the categorization chain.
type CategorizationStrategy interface {
	// Categorize attempts to categorize tx against catalogue. The boolean
	// reports whether this tier produced a result; an error is logged by the
	// engine and the next tier runs.
	Categorize(ctx context.Context, tx models.Transaction, catalogue *Catalogue) (models.CategorizationResult, bool, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}

func loggerOrDefault(logger logging.Logger) logging.Logger {
	if logger == nil {
		return logging.NewLogrusAdapter("info", "text")
	}
	return logger
}
