package categorizer

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"
)

// ExampleGroup holds the sample descriptions of one category.
type ExampleGroup struct {
	Category string
	Examples []string
}

// Catalogue is the category lookup table of one run, with the ordered
// keyword table, the prompt examples and any learned training examples.
// It is read-only once built.
type Catalogue struct {
	categories []models.Category
	byName     map[string]models.Category
	byID       map[string]models.Category
	keywords   []models.CategoryConfig
	examples   []ExampleGroup
	training   []TrainingExample
}

// NewCatalogue builds a catalogue. Keyword entries are kept in table order.
func NewCatalogue(categories []models.Category, table []models.CategoryConfig, training []TrainingExample) *Catalogue {
	c := &Catalogue{
		categories: append([]models.Category(nil), categories...),
		byName:     make(map[string]models.Category, len(categories)),
		byID:       make(map[string]models.Category, len(categories)),
		training:   append([]TrainingExample(nil), training...),
	}
	for _, cat := range categories {
		c.byName[strings.ToLower(cat.Name)] = cat
		if cat.ID != "" {
			c.byID[cat.ID] = cat
		}
	}
	for _, entry := range table {
		kw := make([]string, 0, len(entry.Keywords))
		for _, k := range entry.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		c.keywords = append(c.keywords, models.CategoryConfig{Name: entry.Name, Keywords: kw, Examples: entry.Examples})
		if len(entry.Examples) > 0 {
			c.examples = append(c.examples, ExampleGroup{Category: entry.Name, Examples: append([]string(nil), entry.Examples...)})
		}
	}
	return c
}

// LoadCatalogue reads the categories from storage.
func LoadCatalogue(ctx context.Context, categories store.CategoryStore, table []models.CategoryConfig, training []TrainingExample) (*Catalogue, error) {
	list, err := categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category catalogue: %w", err)
	}
	return NewCatalogue(list, table, training), nil
}

// Lookup finds a category by name, case-insensitively.
func (c *Catalogue) Lookup(name string) (models.Category, bool) {
	if c == nil {
		return models.Category{}, false
	}
	cat, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return cat, ok
}

// ByID finds a category by id.
func (c *Catalogue) ByID(id string) (models.Category, bool) {
	if c == nil {
		return models.Category{}, false
	}
	cat, ok := c.byID[id]
	return cat, ok
}

// Categories returns the categories in storage order.
func (c *Catalogue) Categories() []models.Category {
	if c == nil {
		return nil
	}
	return c.categories
}

// KeywordTable returns the ordered keyword table with lower-cased keywords.
func (c *Catalogue) KeywordTable() []models.CategoryConfig {
	if c == nil {
		return nil
	}
	return c.keywords
}

// Examples returns the prompt examples grouped by category.
func (c *Catalogue) Examples() []ExampleGroup {
	if c == nil {
		return nil
	}
	return c.examples
}

// Training returns the learned training examples.
func (c *Catalogue) Training() []TrainingExample {
	if c == nil {
		return nil
	}
	return c.training
}

// Len returns the number of categories.
func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

func resultFor(cat models.Category, confidence float64, reasoning string, tier models.Tier) models.CategorizationResult {
	r := models.CategorizationResult{
		CategoryName: cat.Name,
		Confidence:   confidence,
		Reasoning:    reasoning,
		Tier:         tier,
	}
	if cat.ID != "" {
		id := cat.ID
		r.CategoryID = &id
	}
	return r
}
