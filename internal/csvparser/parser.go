// Package csvparser turns statement CSV records into transaction drafts
// following a mapping configuration.
package csvparser

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/csv-ingest/internal/currencyutils"
	"fjacquet/csv-ingest/internal/dateutils"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"
	"fjacquet/csv-ingest/internal/textutils"
)

// RowParser converts one raw record into a TransactionDraft. It holds no
// per-row state and is safe for concurrent use once configured.
type RowParser struct {
	rules *textutils.EstablishmentRules
	now   func() time.Time
}

// NewRowParser creates a parser using the default establishment rules.
func NewRowParser() *RowParser {
	return &RowParser{now: time.Now}
}

// NewRowParserWithRules creates a parser using a custom rule registry.
func NewRowParserWithRules(rules *textutils.EstablishmentRules) *RowParser {
	return &RowParser{rules: rules, now: time.Now}
}

// SetClock replaces the clock used for Metadata.ImportedAt.
func (p *RowParser) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

func (p *RowParser) establishment(description, institution string) string {
	if p.rules != nil {
		return p.rules.Extract(description, institution)
	}
	return textutils.ExtractEstablishment(description, institution)
}

// Parse validates the row width, then reads date, amount and description
// through the mapping. Failures are row-level typed errors from parsererror.
func (p *RowParser) Parse(row models.RawRow, mapping *models.MappingConfig, userID, creditCardID string) (models.TransactionDraft, error) {
	if mapping == nil {
		return models.TransactionDraft{}, fmt.Errorf("parse row: mapping is nil")
	}

	expected := mapping.MaxColumnIndex() + 1
	if len(row) < expected {
		return models.TransactionDraft{}, &parsererror.InsufficientColumnsError{Expected: expected, Actual: len(row)}
	}

	cols := mapping.Columns
	dateString := strings.TrimSpace(row[cols.Date])
	description := strings.TrimSpace(row[cols.Description])
	amountString := strings.TrimSpace(row[cols.Amount])

	date, _, err := dateutils.ParseWithPatterns(dateString, mapping.DateFormats)
	if err != nil {
		return models.TransactionDraft{}, err
	}

	amount, err := currencyutils.NormalizeAmount(amountString, mapping.AmountFormat)
	if err != nil {
		return models.TransactionDraft{}, err
	}

	metadata := models.Metadata{
		OriginalRow:    append([]string(nil), row...),
		OriginalDate:   dateString,
		OriginalAmount: amountString,
		MappingID:      mapping.ID,
		MappingName:    mapping.Name,
		Institution:    mapping.Institution,
		ImportedAt:     p.now().UTC(),
	}
	if cols.Category != nil {
		metadata.CategoryHint = strings.TrimSpace(row[*cols.Category])
	}
	if cols.Type != nil {
		metadata.TypeHint = strings.TrimSpace(row[*cols.Type])
	}

	return models.TransactionDraft{
		UserID:         userID,
		CreditCardID:   creditCardID,
		Date:           date,
		Description:    description,
		Establishment:  p.establishment(description, mapping.Institution),
		Amount:         amount,
		RawDescription: description,
		Metadata:       metadata,
	}, nil
}
