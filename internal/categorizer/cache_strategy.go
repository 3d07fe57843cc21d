package categorizer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// DefaultResultTTL is how long an external classification is reused.
const DefaultResultTTL = 30 * 24 * time.Hour

const cacheKeyPrefix = "ai_category_"

// CachedResult is the cached form of an external classification.
type CachedResult struct {
	CategoryName string    `json:"category_name"`
	Confidence   float64   `json:"confidence"`
	Reasoning    string    `json:"reasoning"`
	CachedAt     time.Time `json:"cached_at"`
}

// CacheKey derives the cache key of a description and establishment pair.
func CacheKey(description, establishment string) string {
	sum := md5.Sum([]byte(description + establishment))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// CacheStrategy serves earlier external classifications.
type CacheStrategy struct {
	cache  cache.Store
	logger logging.Logger
}

// NewCacheStrategy creates the cache tier.
func NewCacheStrategy(c cache.Store, logger logging.Logger) *CacheStrategy {
	return &CacheStrategy{cache: c, logger: loggerOrDefault(logger)}
}

// Name returns the name of this strategy for logging and debugging.
func (s *CacheStrategy) Name() string {
	return "Cache"
}

// Categorize returns a cached result whose category still exists. Read
// errors count as a miss.
func (s *CacheStrategy) Categorize(ctx context.Context, tx models.Transaction, catalogue *Catalogue) (models.CategorizationResult, bool, error) {
	if s.cache == nil {
		return models.CategorizationResult{}, false, nil
	}
	key := CacheKey(tx.Description, tx.Establishment)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Cache read failed, treating as miss",
			logging.F(logging.FieldStrategy, s.Name()),
			logging.F(logging.FieldTransactionID, tx.ID))
		return models.CategorizationResult{}, false, nil
	}
	if !ok {
		return models.CategorizationResult{}, false, nil
	}

	var cached CachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.WithError(err).Warn("Ignoring undecodable cache entry",
			logging.F(logging.FieldStrategy, s.Name()))
		return models.CategorizationResult{}, false, nil
	}
	cat, found := catalogue.Lookup(cached.CategoryName)
	if !found {
		s.logger.Debug("Cached category no longer exists",
			logging.F(logging.FieldCategory, cached.CategoryName))
		return models.CategorizationResult{}, false, nil
	}

	s.logger.Debug("Transaction categorized from cache",
		logging.F(logging.FieldTransactionID, tx.ID),
		logging.F(logging.FieldCategory, cat.Name))
	return resultFor(cat, cached.Confidence, cached.Reasoning, models.TierCache), true, nil
}

// storeResult writes an external classification to the cache.
func storeResult(ctx context.Context, c cache.Store, tx models.Transaction, r models.CategorizationResult, ttl time.Duration, now time.Time) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	data, err := json.Marshal(CachedResult{
		CategoryName: r.CategoryName,
		Confidence:   r.Confidence,
		Reasoning:    r.Reasoning,
		CachedAt:     now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}
	return c.Put(ctx, CacheKey(tx.Description, tx.Establishment), data, ttl)
}
