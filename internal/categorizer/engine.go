package categorizer

import (
	"context"
	"time"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// Observer receives one call per categorized transaction.
type Observer interface {
	ObserveCategorization(tier models.Tier, elapsed time.Duration)
}

// Engine runs the strategies in order and returns the first match. When no
// strategy matches it falls back to the catch-all category.
type Engine struct {
	strategies []CategorizationStrategy
	fallback   *DefaultStrategy
	logger     logging.Logger
	observer   Observer
}

// NewEngine creates an engine over the given strategies.
func NewEngine(logger logging.Logger, strategies ...CategorizationStrategy) *Engine {
	logger = loggerOrDefault(logger)
	return &Engine{
		strategies: strategies,
		fallback:   NewDefaultStrategy(""),
		logger:     logger,
	}
}

// EngineOptions configures NewDefaultEngine.
type EngineOptions struct {
	Classifier      Classifier
	Cache           cache.Store
	CacheTTL        time.Duration
	DefaultCategory string
}

// NewDefaultEngine builds the cache, external, keyword and default chain. The
// cache tier runs whenever a cache is set, even without a classifier, so earlier
// external results keep being served.
func NewDefaultEngine(opts EngineOptions, logger logging.Logger) *Engine {
	logger = loggerOrDefault(logger)
	var strategies []CategorizationStrategy
	if opts.Cache != nil {
		strategies = append(strategies, NewCacheStrategy(opts.Cache, logger))
	}
	if opts.Classifier != nil {
		strategies = append(strategies, NewAIStrategy(opts.Classifier, opts.Cache, opts.CacheTTL, logger))
	}
	fallback := NewDefaultStrategy(opts.DefaultCategory)
	strategies = append(strategies, NewKeywordStrategy(logger), fallback)

	e := NewEngine(logger, strategies...)
	e.fallback = fallback
	return e
}

// SetObserver registers an observer for categorization outcomes.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Strategies returns the names of the configured strategies in order.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Categorize never fails. Strategy errors are logged and the next strategy runs.
func (e *Engine) Categorize(ctx context.Context, tx models.Transaction, catalogue *Catalogue) models.CategorizationResult {
	start := time.Now()
	result := e.categorize(ctx, tx, catalogue)
	if e.observer != nil {
		e.observer.ObserveCategorization(result.Tier, time.Since(start))
	}
	return result
}

func (e *Engine) categorize(ctx context.Context, tx models.Transaction, catalogue *Catalogue) models.CategorizationResult {
	for _, strategy := range e.strategies {
		result, ok, err := strategy.Categorize(ctx, tx, catalogue)
		if err != nil {
			e.logger.WithError(err).Warn("Categorization strategy failed",
				logging.F(logging.FieldStrategy, strategy.Name()),
				logging.F(logging.FieldTransactionID, tx.ID))
			continue
		}
		if ok {
			e.logger.Debug("Transaction categorized",
				logging.F(logging.FieldTransactionID, tx.ID),
				logging.F(logging.FieldStrategy, strategy.Name()),
				logging.F(logging.FieldTier, result.Tier),
				logging.F(logging.FieldCategory, result.CategoryName),
				logging.F(logging.FieldConfidence, result.Confidence))
			return result
		}
	}

	result, _, _ := e.fallback.Categorize(ctx, tx, catalogue)
	return result
}
