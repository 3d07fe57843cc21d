// Package mapping selects and administers the CSV mapping configurations
// that drive statement parsing.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"
	"fjacquet/csv-ingest/internal/store"
)

// DefaultFallbackInstitution is used when no fallback is configured.
const DefaultFallbackInstitution = "Nubank"

// Source records which resolution step produced a mapping.
type Source string

const (
	SourceCard        Source = "card"
	SourceInstitution Source = "institution"
	SourceFallback    Source = "fallback"
)

// Resolution is a validated mapping and the step that found it.
type Resolution struct {
	Mapping *models.MappingConfig
	Source  Source
}

// Resolver picks the mapping for an ingestion run.
type Resolver struct {
	mappings store.MappingStore
	cards    store.CardStore
	fallback string
	logger   logging.Logger
}

// NewResolver creates a resolver. An empty fallback uses
// DefaultFallbackInstitution.
func NewResolver(mappings store.MappingStore, cards store.CardStore, fallbackInstitution string, logger logging.Logger) *Resolver {
	if strings.TrimSpace(fallbackInstitution) == "" {
		fallbackInstitution = DefaultFallbackInstitution
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Resolver{
		mappings: mappings,
		cards:    cards,
		fallback: fallbackInstitution,
		logger:   logger,
	}
}

// Resolve tries, in order, the active mapping bound to the card, the
// default mapping of the card's institution and the fallback institution.
// Failing all three yields a *parsererror.NoMappingFoundError; a mapping
// that fails validation yields a *parsererror.InvalidMappingError.
func (r *Resolver) Resolve(ctx context.Context, creditCardID string) (*Resolution, error) {
	var tried []string

	if creditCardID != "" {
		m, err := r.mappings.FindActiveMappingByCard(ctx, creditCardID)
		switch {
		case err == nil:
			return r.accept(m, SourceCard, creditCardID)
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("find mapping for card %s: %w", creditCardID, err)
		}

		card, err := r.cards.FindCreditCard(ctx, creditCardID)
		switch {
		case err == nil && strings.TrimSpace(card.Institution) != "":
			tried = append(tried, card.Institution)
			m, err := r.mappings.FindActiveMappingByInstitution(ctx, card.Institution)
			if err == nil {
				return r.accept(m, SourceInstitution, creditCardID)
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("find mapping for institution %s: %w", card.Institution, err)
			}
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("find credit card %s: %w", creditCardID, err)
		}
	}

	if !containsFold(tried, r.fallback) {
		tried = append(tried, r.fallback)
		m, err := r.mappings.FindActiveMappingByInstitution(ctx, r.fallback)
		if err == nil {
			return r.accept(m, SourceFallback, creditCardID)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("find mapping for institution %s: %w", r.fallback, err)
		}
	}

	return nil, &parsererror.NoMappingFoundError{CreditCardID: creditCardID, Institutions: tried}
}

func (r *Resolver) accept(m *models.MappingConfig, source Source, creditCardID string) (*Resolution, error) {
	if err := m.Validate(); err != nil {
		return nil, &parsererror.InvalidMappingError{MappingID: m.ID, MappingName: m.Name, Err: err}
	}
	r.logger.Debug("Resolved CSV mapping",
		logging.F(logging.FieldMapping, m.Name),
		logging.F(logging.FieldMappingSource, string(source)),
		logging.F(logging.FieldCard, creditCardID),
		logging.F(logging.FieldInstitution, m.Institution),
	)
	return &Resolution{Mapping: m, Source: source}, nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
