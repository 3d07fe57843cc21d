// Package store defines the persistence contract used by the ingestion
// pipeline and provides an in-memory implementation and YAML seed data.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"fjacquet/csv-ingest/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateTransaction is returned by CreateTransaction when the
	// (user, date, description, amount, occurrence) key already exists.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// MatchKey identifies transactions considered identical for deduplication.
type MatchKey struct {
	UserID      string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// KeyOf returns the match key of a draft.
func KeyOf(d models.TransactionDraft) MatchKey {
	return MatchKey{UserID: d.UserID, Date: d.Date, Description: d.Description, Amount: d.Amount}
}

// String renders the key in a stable form usable as a map key.
func (k MatchKey) String() string {
	return strings.Join([]string{
		k.UserID,
		k.Date.UTC().Format("2006-01-02"),
		k.Description,
		k.Amount.StringFixed(2),
	}, "\x1f")
}

// MappingFilter narrows ListMappings. Zero values match everything.
type MappingFilter struct {
	Institution  string
	CreditCardID string
	ActiveOnly   bool
}

// Matches reports whether m passes the filter. Institutions compare case
// insensitively.
func (f MappingFilter) Matches(m models.MappingConfig) bool {
	if f.Institution != "" && !strings.EqualFold(f.Institution, m.Institution) {
		return false
	}
	if f.CreditCardID != "" && f.CreditCardID != m.CreditCardID {
		return false
	}
	if f.ActiveOnly && !m.IsActive {
		return false
	}
	return true
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	UserID       string
	CreditCardID string
	// OnlyUncategorized keeps rows without a category. When BelowConfidence
	// is positive it also keeps AI-categorized rows under that confidence.
	OnlyUncategorized bool
	BelowConfidence   float64
	OnlyCategorized   bool
	NewestFirst       bool
	Limit             int
}

// Matches reports whether tx passes the filter, ignoring ordering and limit.
func (f TransactionFilter) Matches(tx models.Transaction) bool {
	if f.UserID != "" && f.UserID != tx.UserID {
		return false
	}
	if f.CreditCardID != "" && f.CreditCardID != tx.CreditCardID {
		return false
	}
	if f.OnlyCategorized && !tx.IsCategorized() {
		return false
	}
	if f.OnlyUncategorized {
		lowConfidence := f.BelowConfidence > 0 && tx.IsCategorizedByAI &&
			tx.AIConfidence != nil && *tx.AIConfidence < f.BelowConfidence
		if tx.IsCategorized() && !lowConfidence {
			return false
		}
	}
	return true
}

// CategoryUpdate is the categorization state written back to a transaction.
type CategoryUpdate struct {
	CategoryID        *string
	IsCategorizedByAI bool
	AIConfidence      *float64
}

// MappingStore persists CSV mappings.
type MappingStore interface {
	FindActiveMappingByCard(ctx context.Context, creditCardID string) (*models.MappingConfig, error)
	FindActiveMappingByInstitution(ctx context.Context, institution string) (*models.MappingConfig, error)
	FindMapping(ctx context.Context, id string) (*models.MappingConfig, error)
	ListMappings(ctx context.Context, filter MappingFilter) ([]models.MappingConfig, error)
	SaveMapping(ctx context.Context, mapping *models.MappingConfig) error
	DeactivateMapping(ctx context.Context, id string) error
}

// CardStore persists credit cards.
type CardStore interface {
	FindCreditCard(ctx context.Context, id string) (*models.CreditCard, error)
	SaveCreditCard(ctx context.Context, card *models.CreditCard) error
}

// TransactionStore persists transactions.
type TransactionStore interface {
	TransactionExists(ctx context.Context, key MatchKey) (bool, error)
	CountMatchingTransactions(ctx context.Context, key MatchKey) (int, error)
	CreateTransaction(ctx context.Context, draft models.TransactionDraft) (*models.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id string, update CategoryUpdate) error
	FindTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

// CategoryStore persists the category lookup table.
type CategoryStore interface {
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, category *models.Category) error
}

// Storage is the full persistence contract.
type Storage interface {
	MappingStore
	CardStore
	TransactionStore
	CategoryStore
	Close() error
}
