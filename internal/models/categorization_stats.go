package models

import (
	"encoding/json"
	"sync"

	"fjacquet/csv-ingest/internal/logging"
)

// CategorizationStats tracks categorization outcomes of a run. It is safe for
// concurrent use by the categorization workers.
type CategorizationStats struct {
	mu            sync.Mutex
	total         int
	successful    int
	failed        int
	uncategorized int
	byTier        map[Tier]int
}

// StatsSnapshot is a point-in-time copy of CategorizationStats.
type StatsSnapshot struct {
	Total         int          `json:"total"`
	Successful    int          `json:"successful"`
	Failed        int          `json:"failed"`
	Uncategorized int          `json:"uncategorized"`
	ByTier        map[Tier]int `json:"by_tier"`
}

// NewCategorizationStats creates an empty CategorizationStats.
func NewCategorizationStats() *CategorizationStats {
	return &CategorizationStats{byTier: make(map[Tier]int)}
}

// Record counts one result. Applied tells whether the category was persisted.
func (cs *CategorizationStats) Record(result CategorizationResult, applied bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.total++
	if cs.byTier == nil {
		cs.byTier = make(map[Tier]int)
	}
	cs.byTier[result.Tier]++
	if applied {
		cs.successful++
	} else {
		cs.uncategorized++
	}
}

// RecordFailure counts a transaction whose category could not be stored.
func (cs *CategorizationStats) RecordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.total++
	cs.failed++
}

// Snapshot returns a copy that callers may read freely.
func (cs *CategorizationStats) Snapshot() StatsSnapshot {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	byTier := make(map[Tier]int, len(cs.byTier))
	for k, v := range cs.byTier {
		byTier[k] = v
	}
	return StatsSnapshot{
		Total:         cs.total,
		Successful:    cs.successful,
		Failed:        cs.failed,
		Uncategorized: cs.uncategorized,
		ByTier:        byTier,
	}
}

// MarshalJSON encodes the current snapshot.
func (cs *CategorizationStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.Snapshot())
}

// SuccessRate returns the share of categorized transactions as a percentage.
func (s StatsSnapshot) SuccessRate() float64 {
	if s.Total == 0 {
		return 0.0
	}
	return float64(s.Successful) / float64(s.Total) * 100.0
}

// LogSummary logs the categorization totals.
func (cs *CategorizationStats) LogSummary(logger logging.Logger, mappingName string) {
	if logger == nil {
		return
	}
	s := cs.Snapshot()
	logger.Info("Categorization summary",
		logging.F(logging.FieldMapping, mappingName),
		logging.F("total_transactions", s.Total),
		logging.F("successful", s.Successful),
		logging.F("failed", s.Failed),
		logging.F("uncategorized", s.Uncategorized),
		logging.F("by_tier", s.ByTier),
		logging.F("success_rate", s.SuccessRate()),
	)
}
