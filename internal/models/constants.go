package models

// Seeded category names referenced by code paths.
const (
	CategoryOther = "Outros"
)

// Default reasoning strings attached to categorization results.
const (
	ReasoningExternalDefault = "Classificação automática"
	ReasoningDefaultTier     = "Classificação padrão - não identificado"
	ReasoningKeywordPrefix   = "Palavra-chave detectada: "
)

// Fixed confidences for the heuristic tiers.
const (
	ConfidenceKeyword          = 0.6
	ConfidenceDefault          = 0.3
	ConfidenceExternalFallback = 0.5
)

// DefaultConfidenceThreshold is the minimum confidence persisted by default.
const DefaultConfidenceThreshold = 0.3

// File permissions
const (
	PermissionDirectory  = 0750
	PermissionExportFile = 0644
)
