package mapping

import (
	"context"
	"fmt"

	"fjacquet/csv-ingest/internal/csvparser"
	"fjacquet/csv-ingest/internal/dateutils"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"
	"fjacquet/csv-ingest/internal/store"

	"github.com/shopspring/decimal"
)

// TestResult is what a sample row parses to under a mapping. Nothing is
// persisted.
type TestResult struct {
	MappingID     string          `json:"mapping_id"`
	MappingName   string          `json:"mapping_name"`
	Institution   string          `json:"institution"`
	Delimiter     string          `json:"delimiter"`
	HasHeader     bool            `json:"has_header"`
	Date          string          `json:"date"`
	Description   string          `json:"description"`
	Establishment string          `json:"establishment"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryHint  string          `json:"category,omitempty"`
	TypeHint      string          `json:"type,omitempty"`
}

// ValidationIssue is a stored mapping that fails validation.
type ValidationIssue struct {
	MappingID   string
	MappingName string
	Err         error
}

// Service administers stored mappings.
type Service struct {
	store  store.MappingStore
	parser *csvparser.RowParser
}

// NewService creates a mapping service. A nil parser uses the defaults.
func NewService(s store.MappingStore, parser *csvparser.RowParser) *Service {
	if parser == nil {
		parser = csvparser.NewRowParser()
	}
	return &Service{store: s, parser: parser}
}

// List returns the mappings passing filter.
func (s *Service) List(ctx context.Context, filter store.MappingFilter) ([]models.MappingConfig, error) {
	return s.store.ListMappings(ctx, filter)
}

// Validate checks one stored mapping.
func (s *Service) Validate(ctx context.Context, id string) error {
	m, err := s.store.FindMapping(ctx, id)
	if err != nil {
		return fmt.Errorf("find mapping %s: %w", id, err)
	}
	if err := m.Validate(); err != nil {
		return &parsererror.InvalidMappingError{MappingID: m.ID, MappingName: m.Name, Err: err}
	}
	return nil
}

// ValidateAll checks every stored mapping, active or not.
func (s *Service) ValidateAll(ctx context.Context) ([]ValidationIssue, error) {
	all, err := s.store.ListMappings(ctx, store.MappingFilter{})
	if err != nil {
		return nil, err
	}
	var issues []ValidationIssue
	for _, m := range all {
		if err := m.Validate(); err != nil {
			issues = append(issues, ValidationIssue{MappingID: m.ID, MappingName: m.Name, Err: err})
		}
	}
	return issues, nil
}

// Deactivate marks a mapping inactive; mappings are never deleted.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.store.DeactivateMapping(ctx, id); err != nil {
		return fmt.Errorf("deactivate mapping %s: %w", id, err)
	}
	return nil
}

// Test parses one sample line with the stored mapping id.
func (s *Service) Test(ctx context.Context, id, sample string) (*TestResult, error) {
	m, err := s.store.FindMapping(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find mapping %s: %w", id, err)
	}
	row, err := csvparser.SplitSample(sample, m.DelimiterRune())
	if err != nil {
		return nil, err
	}
	return s.TestRow(m, row)
}

// TestRow parses an already split sample row with mapping.
func (s *Service) TestRow(mapping *models.MappingConfig, row models.RawRow) (*TestResult, error) {
	if err := mapping.Validate(); err != nil {
		return nil, &parsererror.InvalidMappingError{MappingID: mapping.ID, MappingName: mapping.Name, Err: err}
	}
	draft, err := s.parser.Parse(row, mapping, "", mapping.CreditCardID)
	if err != nil {
		return nil, fmt.Errorf("test mapping %q: %w", mapping.Name, err)
	}
	return &TestResult{
		MappingID:     mapping.ID,
		MappingName:   mapping.Name,
		Institution:   mapping.Institution,
		Delimiter:     string(mapping.DelimiterRune()),
		HasHeader:     mapping.HasHeader,
		Date:          dateutils.ToISODate(draft.Date),
		Description:   draft.Description,
		Establishment: draft.Establishment,
		Amount:        draft.Amount,
		CategoryHint:  draft.Metadata.CategoryHint,
		TypeHint:      draft.Metadata.TypeHint,
	}, nil
}
