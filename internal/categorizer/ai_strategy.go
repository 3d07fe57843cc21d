package categorizer

import (
	"context"
	"time"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// AIStrategy asks the external classifier and caches what it answers.
type AIStrategy struct {
	classifier Classifier
	cache      cache.Store
	ttl        time.Duration
	logger     logging.Logger
	now        func() time.Time
}

// NewAIStrategy creates the external tier. A nil cache disables caching.
func NewAIStrategy(classifier Classifier, c cache.Store, ttl time.Duration, logger logging.Logger) *AIStrategy {
	return &AIStrategy{
		classifier: classifier,
		cache:      c,
		ttl:        ttl,
		logger:     loggerOrDefault(logger),
		now:        time.Now,
	}
}

// Name returns the name of this strategy for logging and debugging.
func (s *AIStrategy) Name() string {
	return "AI"
}

// Categorize calls the classifier. Any failure is logged and reported as
// no match so the next tier runs.
func (s *AIStrategy) Categorize(ctx context.Context, tx models.Transaction, catalogue *Catalogue) (models.CategorizationResult, bool, error) {
	if s.classifier == nil {
		return models.CategorizationResult{}, false, nil
	}

	reply, err := s.classifier.Classify(ctx, BuildPrompt(tx, catalogue))
	if err != nil {
		s.logger.WithError(err).Warn("AI categorization failed",
			logging.F(logging.FieldStrategy, s.Name()),
			logging.F(logging.FieldTransactionID, tx.ID))
		return models.CategorizationResult{}, false, nil
	}

	cat, found := catalogue.Lookup(reply.CategoryName)
	if !found {
		s.logger.Warn("AI returned an unknown category",
			logging.F(logging.FieldStrategy, s.Name()),
			logging.F(logging.FieldCategory, reply.CategoryName),
			logging.F(logging.FieldTransactionID, tx.ID))
		return models.CategorizationResult{}, false, nil
	}

	result := resultFor(cat, reply.Confidence, reply.Reasoning, models.TierExternal)
	if err := storeResult(ctx, s.cache, tx, result, s.ttl, s.now()); err != nil {
		s.logger.WithError(err).Warn("Failed to cache AI result",
			logging.F(logging.FieldTransactionID, tx.ID))
	}

	s.logger.Debug("Transaction categorized using AI",
		logging.F(logging.FieldTransactionID, tx.ID),
		logging.F(logging.FieldCategory, cat.Name),
		logging.F(logging.FieldConfidence, result.Confidence))
	return result, true, nil
}
