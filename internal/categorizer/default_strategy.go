package categorizer

import (
	"context"

	"fjacquet/csv-ingest/internal/models"
)

// DefaultStrategy assigns the catch-all category.
type DefaultStrategy struct {
	category string
}

// NewDefaultStrategy creates the last tier. An empty name uses "Outros".
func NewDefaultStrategy(category string) *DefaultStrategy {
	if category == "" {
		category = models.CategoryOther
	}
	return &DefaultStrategy{category: category}
}

// Name returns the name of this strategy for logging and debugging.
func (s *DefaultStrategy) Name() string {
	return "Default"
}

// Categorize always matches. The category reference is nil when the
// catch-all is not in the catalogue.
func (s *DefaultStrategy) Categorize(_ context.Context, _ models.Transaction, catalogue *Catalogue) (models.CategorizationResult, bool, error) {
	if cat, ok := catalogue.Lookup(s.category); ok {
		return resultFor(cat, models.ConfidenceDefault, models.ReasoningDefaultTier, models.TierDefault), true, nil
	}
	return models.CategorizationResult{
		CategoryName: s.category,
		Confidence:   models.ConfidenceDefault,
		Reasoning:    models.ReasoningDefaultTier,
		Tier:         models.TierDefault,
	}, true, nil
}
