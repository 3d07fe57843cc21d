package categorizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/store"

	"github.com/shopspring/decimal"
)

// TrainingDataKey is the cache key of the learned examples.
const TrainingDataKey = "ai_training_data"

// Training data defaults.
const (
	DefaultTrainingTTL   = 7 * 24 * time.Hour
	DefaultTrainingLimit = 100
)

// TrainingExample is a transaction a user has already categorized.
type TrainingExample struct {
	Description   string          `json:"description"`
	Establishment string          `json:"establishment"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
}

// Trainer collects categorized transactions so prompts can cite them.
type Trainer struct {
	transactions store.TransactionStore
	categories   store.CategoryStore
	cache        cache.Store
	ttl          time.Duration
	limit        int
	logger       logging.Logger
}

// NewTrainer creates a Trainer. A non-positive ttl uses DefaultTrainingTTL.
func NewTrainer(transactions store.TransactionStore, categories store.CategoryStore, c cache.Store, ttl time.Duration, logger logging.Logger) *Trainer {
	if ttl <= 0 {
		ttl = DefaultTrainingTTL
	}
	logger = loggerOrDefault(logger)
	return &Trainer{
		transactions: transactions,
		categories:   categories,
		cache:        c,
		ttl:          ttl,
		limit:        DefaultTrainingLimit,
		logger:       logger,
	}
}

// WarmTrainingData stores the most recent categorized transactions of the
// user under TrainingDataKey and returns them.
func (t *Trainer) WarmTrainingData(ctx context.Context, userID string) ([]TrainingExample, error) {
	txs, err := t.transactions.ListTransactions(ctx, store.TransactionFilter{
		UserID:          userID,
		OnlyCategorized: true,
		NewestFirst:     true,
		Limit:           t.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list categorized transactions: %w", err)
	}
	categories, err := t.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	examples := make([]TrainingExample, 0, len(txs))
	for _, tx := range txs {
		name, ok := names[*tx.CategoryID]
		if !ok {
			continue
		}
		examples = append(examples, TrainingExample{
			Description:   tx.Description,
			Establishment: tx.Establishment,
			Category:      name,
			Amount:        tx.Amount,
		})
	}

	data, err := json.Marshal(examples)
	if err != nil {
		return nil, fmt.Errorf("marshal training data: %w", err)
	}
	if err := t.cache.Put(ctx, TrainingDataKey, data, t.ttl); err != nil {
		return nil, fmt.Errorf("store training data: %w", err)
	}

	t.logger.Info("Training data refreshed",
		logging.F(logging.FieldUser, userID),
		logging.F(logging.FieldCount, len(examples)))
	return examples, nil
}

// LoadTrainingData returns the cached training examples. A miss returns nil.
func (t *Trainer) LoadTrainingData(ctx context.Context) ([]TrainingExample, error) {
	return LoadTrainingData(ctx, t.cache)
}

// LoadTrainingData reads the training examples from c.
func LoadTrainingData(ctx context.Context, c cache.Store) ([]TrainingExample, error) {
	if c == nil {
		return nil, nil
	}
	data, ok, err := c.Get(ctx, TrainingDataKey)
	if err != nil {
		return nil, fmt.Errorf("read training data: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var examples []TrainingExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("decode training data: %w", err)
	}
	return examples, nil
}
