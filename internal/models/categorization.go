package models

// Tier identifies the stage of the categorization chain that produced a result.
type Tier string

const (
	TierCache    Tier = "cache"
	TierExternal Tier = "external"
	TierKeyword  Tier = "keyword"
	TierDefault  Tier = "default"
)

// CategorizationResult is the outcome of categorizing one transaction. A nil
// CategoryID means uncategorized.
type CategorizationResult struct {
	CategoryID   *string `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	Tier         Tier    `json:"tier"`
}

// Accepted reports whether the result carries a category with enough
// confidence to be persisted.
func (r CategorizationResult) Accepted(threshold float64) bool {
	return r.CategoryID != nil && r.Confidence >= threshold
}

// IsAI reports whether the result came from the external classifier,
// directly or through its cache.
func (r CategorizationResult) IsAI() bool {
	return r.Tier == TierExternal || r.Tier == TierCache
}
