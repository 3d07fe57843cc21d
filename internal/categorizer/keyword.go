package categorizer

import (
	"context"
	"strings"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// KeywordStrategy matches the ordered keyword table against the lower-cased
// description and establishment.
type KeywordStrategy struct {
	logger logging.Logger
}

// NewKeywordStrategy creates the keyword tier.
func NewKeywordStrategy(logger logging.Logger) *KeywordStrategy {
	return &KeywordStrategy{logger: loggerOrDefault(logger)}
}

// Name returns the name of this strategy for logging and debugging.
func (s *KeywordStrategy) Name() string {
	return "Keyword"
}

// Categorize returns the first keyword hit whose category exists.
func (s *KeywordStrategy) Categorize(_ context.Context, tx models.Transaction, catalogue *Catalogue) (models.CategorizationResult, bool, error) {
	text := strings.ToLower(tx.Description + " " + tx.Establishment)

	for _, entry := range catalogue.KeywordTable() {
		for _, keyword := range entry.Keywords {
			if !strings.Contains(text, keyword) {
				continue
			}
			cat, found := catalogue.Lookup(entry.Name)
			if !found {
				continue
			}
			s.logger.Debug("Transaction categorized using keyword matching",
				logging.F(logging.FieldTransactionID, tx.ID),
				logging.F("keyword", keyword),
				logging.F(logging.FieldCategory, cat.Name))
			return resultFor(cat, models.ConfidenceKeyword, models.ReasoningKeywordPrefix+keyword, models.TierKeyword), true, nil
		}
	}
	return models.CategorizationResult{}, false, nil
}
