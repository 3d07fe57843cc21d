package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultSeed []byte

// SeedCategory is a category row together with its keyword table entry.
type SeedCategory struct {
	models.Category `yaml:",inline"`
	Keywords        []string `yaml:"keywords,omitempty"`
	Examples        []string `yaml:"examples,omitempty"`
}

// Seed is the lookup data loaded into a fresh store.
type Seed struct {
	Categories  []SeedCategory         `yaml:"categories"`
	CreditCards []models.CreditCard    `yaml:"credit_cards"`
	Mappings    []models.MappingConfig `yaml:"mappings"`
}

// SeedResult counts the records created by ApplySeed.
type SeedResult struct {
	Categories  int
	CreditCards int
	Mappings    int
}

// DefaultSeed returns the embedded default seed.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a seed file. An empty path selects the embedded defaults.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML and validates its mappings.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("error parsing seed data: %w", err)
	}
	for i := range seed.Mappings {
		if err := seed.Mappings[i].Validate(); err != nil {
			return nil, fmt.Errorf("seed mapping %q: %w", seed.Mappings[i].Name, err)
		}
	}
	return &seed, nil
}

// KeywordTable returns the ordered keyword table used by keyword
// categorization and the classifier prompt examples.
func (s *Seed) KeywordTable() []models.CategoryConfig {
	table := make([]models.CategoryConfig, 0, len(s.Categories))
	for _, c := range s.Categories {
		table = append(table, models.CategoryConfig{
			Name:     c.Name,
			Keywords: c.Keywords,
			Examples: c.Examples,
		})
	}
	return table
}

// ApplySeed creates the seed records that do not exist yet. Categories are
// matched by name, cards and mappings by id. Cards are assigned to userID.
func ApplySeed(ctx context.Context, s Storage, seed *Seed, userID string, logger logging.Logger) (SeedResult, error) {
	var result SeedResult

	for _, sc := range seed.Categories {
		_, err := s.FindCategoryByName(ctx, sc.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return result, fmt.Errorf("seed category %q: %w", sc.Name, err)
		}
		category := sc.Category
		if err := s.SaveCategory(ctx, &category); err != nil {
			return result, fmt.Errorf("seed category %q: %w", sc.Name, err)
		}
		result.Categories++
	}

	for _, card := range seed.CreditCards {
		if card.ID != "" {
			if _, err := s.FindCreditCard(ctx, card.ID); err == nil {
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return result, fmt.Errorf("seed credit card %q: %w", card.Name, err)
			}
		}
		card.UserID = userID
		if err := s.SaveCreditCard(ctx, &card); err != nil {
			return result, fmt.Errorf("seed credit card %q: %w", card.Name, err)
		}
		result.CreditCards++
	}

	for _, mapping := range seed.Mappings {
		if mapping.ID != "" {
			if _, err := s.FindMapping(ctx, mapping.ID); err == nil {
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return result, fmt.Errorf("seed mapping %q: %w", mapping.Name, err)
			}
		}
		if err := s.SaveMapping(ctx, &mapping); err != nil {
			return result, fmt.Errorf("seed mapping %q: %w", mapping.Name, err)
		}
		result.Mappings++
	}

	if logger != nil {
		logger.Info("Seed data applied",
			logging.F("categories", result.Categories),
			logging.F("credit_cards", result.CreditCards),
			logging.F("mappings", result.Mappings),
			logging.F(logging.FieldUser, userID))
	}
	return result, nil
}
