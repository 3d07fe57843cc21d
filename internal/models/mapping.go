package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ColumnMap assigns zero-based CSV column indexes to field roles.
type ColumnMap struct {
	Date        int  `json:"date" yaml:"date"`
	Description int  `json:"description" yaml:"description"`
	Amount      int  `json:"amount" yaml:"amount"`
	Category    *int `json:"category,omitempty" yaml:"category,omitempty"`
	Type        *int `json:"type,omitempty" yaml:"type,omitempty"`
}

// MaxIndex returns the largest column index referenced by any role.
func (c ColumnMap) MaxIndex() int {
	highest := max(c.Date, c.Description, c.Amount)
	for _, idx := range []*int{c.Category, c.Type} {
		if idx != nil && *idx > highest {
			highest = *idx
		}
	}
	return highest
}

// AmountFormat describes how one institution writes monetary values.
type AmountFormat struct {
	CurrencySymbol          string `json:"currency_symbol,omitempty" yaml:"currency_symbol,omitempty"`
	DecimalSeparator        string `json:"decimal_separator,omitempty" yaml:"decimal_separator,omitempty"`
	ThousandsSeparator      string `json:"thousands_separator,omitempty" yaml:"thousands_separator,omitempty"`
	NegativeValuesAreIncome bool   `json:"negative_values_are_income,omitempty" yaml:"negative_values_are_income,omitempty"`
}

// MappingConfig is the parsing recipe for one institution's or card's CSV export.
type MappingConfig struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	CreditCardID string       `json:"credit_card_id,omitempty" yaml:"credit_card_id,omitempty"`
	Institution  string       `json:"institution" yaml:"institution"`
	Columns      ColumnMap    `json:"column_mapping" yaml:"column_mapping"`
	DateFormats  []string     `json:"date_format" yaml:"date_format"`
	AmountFormat AmountFormat `json:"amount_format" yaml:"amount_format"`
	Delimiter    string       `json:"delimiter" yaml:"delimiter"`
	HasHeader    bool         `json:"has_header" yaml:"has_header"`
	Encoding     string       `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	IsActive     bool         `json:"is_active" yaml:"is_active"`
	CreatedAt    time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"-"`
}

// MaxColumnIndex returns the largest column index the mapping reads.
func (m *MappingConfig) MaxColumnIndex() int {
	return m.Columns.MaxIndex()
}

// DelimiterRune returns the field delimiter, defaulting to a comma.
func (m *MappingConfig) DelimiterRune() rune {
	if m.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(m.Delimiter)
	return r
}

// Validate checks the structural invariants of the mapping.
func (m *MappingConfig) Validate() error {
	var problems []string

	required := map[string]int{
		"date":        m.Columns.Date,
		"description": m.Columns.Description,
		"amount":      m.Columns.Amount,
	}
	seen := make(map[int]string, len(required))
	for _, role := range []string{"date", "description", "amount"} {
		idx := required[role]
		if idx < 0 {
			problems = append(problems, fmt.Sprintf("column %s has negative index %d", role, idx))
			continue
		}
		if other, dup := seen[idx]; dup {
			problems = append(problems, fmt.Sprintf("columns %s and %s share index %d", other, role, idx))
			continue
		}
		seen[idx] = role
	}
	if m.Columns.Category != nil && *m.Columns.Category < 0 {
		problems = append(problems, fmt.Sprintf("column category has negative index %d", *m.Columns.Category))
	}
	if m.Columns.Type != nil && *m.Columns.Type < 0 {
		problems = append(problems, fmt.Sprintf("column type has negative index %d", *m.Columns.Type))
	}
	if m.Delimiter != "" && utf8.RuneCountInString(m.Delimiter) != 1 {
		problems = append(problems, fmt.Sprintf("delimiter must be a single character, got %q", m.Delimiter))
	}
	if len(m.DateFormats) == 0 {
		problems = append(problems, "at least one date format is required")
	}
	if strings.TrimSpace(m.Institution) == "" {
		problems = append(problems, "institution is required")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
