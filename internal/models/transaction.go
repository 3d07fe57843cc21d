package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is the ordered list of fields read from one CSV record.
type RawRow []string

// Metadata records where a transaction came from. It is stored as JSON next
// to the transaction.
type Metadata struct {
	OriginalRow       []string          `json:"original_row"`
	OriginalDate      string            `json:"original_date"`
	OriginalAmount    string            `json:"original_amount"`
	MappingID         string            `json:"csv_mapping_id"`
	MappingName       string            `json:"csv_mapping_name,omitempty"`
	Institution       string            `json:"institution"`
	CategoryHint      string            `json:"category_from_csv,omitempty"`
	TypeHint          string            `json:"type_from_csv,omitempty"`
	ImportedAt        time.Time         `json:"imported_at"`
	SourceFile        string            `json:"source_file,omitempty"`
	SourceFingerprint string            `json:"source_fingerprint,omitempty"`
	RowNumber         int               `json:"row_number,omitempty"`
	Occurrence        int               `json:"occurrence,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// TransactionDraft is a parsed, not yet persisted transaction. Date carries
// a calendar date at UTC midnight.
type TransactionDraft struct {
	UserID         string          `json:"user_id"`
	CreditCardID   string          `json:"credit_card_id,omitempty"`
	Date           time.Time       `json:"transaction_date"`
	Description    string          `json:"description"`
	Establishment  string          `json:"establishment"`
	Amount         decimal.Decimal `json:"amount"`
	RawDescription string          `json:"raw_description"`
	Metadata       Metadata        `json:"metadata"`
}

// Occurrence returns the position of this draft among identical rows of the
// same run, never less than one.
func (d TransactionDraft) Occurrence() int {
	if d.Metadata.Occurrence < 1 {
		return 1
	}
	return d.Metadata.Occurrence
}

// Transaction is a persisted draft plus its categorization state.
type Transaction struct {
	TransactionDraft
	ID                string    `json:"id"`
	CategoryID        *string   `json:"category_id,omitempty"`
	IsCategorizedByAI bool      `json:"is_categorized_by_ai"`
	AIConfidence      *float64  `json:"ai_confidence,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsCategorized reports whether a category is assigned.
func (t Transaction) IsCategorized() bool {
	return t.CategoryID != nil && *t.CategoryID != ""
}
