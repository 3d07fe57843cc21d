package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"fjacquet/csv-ingest/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is a thread-safe in-memory Storage used by tests and dry runs.
type MemoryStore struct {
	mu sync.RWMutex

	now func() time.Time

	mappings     map[string]models.MappingConfig
	mappingOrder []string
	cards        map[string]models.CreditCard
	categories   map[string]models.Category

	transactions map[string]models.Transaction
	txOrder      []string
	occurrences  map[string]string // key#occurrence -> transaction id
	matchCounts  map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          time.Now,
		mappings:     make(map[string]models.MappingConfig),
		cards:        make(map[string]models.CreditCard),
		categories:   make(map[string]models.Category),
		transactions: make(map[string]models.Transaction),
		occurrences:  make(map[string]string),
		matchCounts:  make(map[string]int),
	}
}

// SetClock replaces the clock used for timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func cloneMapping(m models.MappingConfig) models.MappingConfig {
	m.DateFormats = slices.Clone(m.DateFormats)
	if m.Columns.Category != nil {
		v := *m.Columns.Category
		m.Columns.Category = &v
	}
	if m.Columns.Type != nil {
		v := *m.Columns.Type
		m.Columns.Type = &v
	}
	return m
}

func cloneTransaction(tx models.Transaction) models.Transaction {
	if tx.CategoryID != nil {
		v := *tx.CategoryID
		tx.CategoryID = &v
	}
	if tx.AIConfidence != nil {
		v := *tx.AIConfidence
		tx.AIConfidence = &v
	}
	tx.Metadata.OriginalRow = slices.Clone(tx.Metadata.OriginalRow)
	return tx
}

// FindActiveMappingByCard returns the first active mapping bound to the card.
func (s *MemoryStore) FindActiveMappingByCard(_ context.Context, creditCardID string) (*models.MappingConfig, error) {
	return s.firstMapping(MappingFilter{CreditCardID: creditCardID, ActiveOnly: true}, creditCardID != "")
}

// FindActiveMappingByInstitution returns the first active mapping of the
// institution, in creation order.
func (s *MemoryStore) FindActiveMappingByInstitution(_ context.Context, institution string) (*models.MappingConfig, error) {
	return s.firstMapping(MappingFilter{Institution: institution, ActiveOnly: true}, institution != "")
}

func (s *MemoryStore) firstMapping(filter MappingFilter, valid bool) (*models.MappingConfig, error) {
	if !valid {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.mappingOrder {
		m := s.mappings[id]
		if filter.Matches(m) {
			out := cloneMapping(m)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// FindMapping returns a mapping by id, active or not.
func (s *MemoryStore) FindMapping(_ context.Context, id string) (*models.MappingConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneMapping(m)
	return &out, nil
}

// ListMappings returns mappings in creation order.
func (s *MemoryStore) ListMappings(_ context.Context, filter MappingFilter) ([]models.MappingConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MappingConfig{}
	for _, id := range s.mappingOrder {
		if m := s.mappings[id]; filter.Matches(m) {
			out = append(out, cloneMapping(m))
		}
	}
	return out, nil
}

// SaveMapping inserts or replaces a mapping. An empty ID is assigned.
func (s *MemoryStore) SaveMapping(_ context.Context, mapping *models.MappingConfig) error {
	if mapping == nil {
		return fmt.Errorf("save mapping: nil mapping")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if existing, ok := s.mappings[mapping.ID]; ok {
		mapping.CreatedAt = existing.CreatedAt
	} else {
		mapping.CreatedAt = now
		s.mappingOrder = append(s.mappingOrder, mapping.ID)
	}
	mapping.UpdatedAt = now
	s.mappings[mapping.ID] = cloneMapping(*mapping)
	return nil
}

// DeactivateMapping marks a mapping inactive. Mappings are never removed.
func (s *MemoryStore) DeactivateMapping(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[id]
	if !ok {
		return ErrNotFound
	}
	m.IsActive = false
	m.UpdatedAt = s.now()
	s.mappings[id] = m
	return nil
}

// FindCreditCard returns a card by id.
func (s *MemoryStore) FindCreditCard(_ context.Context, id string) (*models.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// SaveCreditCard inserts or replaces a card. An empty ID is assigned.
func (s *MemoryStore) SaveCreditCard(_ context.Context, card *models.CreditCard) error {
	if card == nil {
		return fmt.Errorf("save credit card: nil card")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	s.cards[card.ID] = *card
	return nil
}

// TransactionExists reports whether any transaction matches key.
func (s *MemoryStore) TransactionExists(ctx context.Context, key MatchKey) (bool, error) {
	n, err := s.CountMatchingTransactions(ctx, key)
	return n > 0, err
}

// CountMatchingTransactions counts transactions matching key.
func (s *MemoryStore) CountMatchingTransactions(_ context.Context, key MatchKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchCounts[key.String()], nil
}

func occurrenceKey(key MatchKey, occurrence int) string {
	return fmt.Sprintf("%s#%d", key.String(), occurrence)
}

// CreateTransaction persists a draft. The check and the insert happen under
// one lock, so concurrent callers cannot both insert the same occurrence.
func (s *MemoryStore) CreateTransaction(_ context.Context, draft models.TransactionDraft) (*models.Transaction, error) {
	key := KeyOf(draft)
	occKey := occurrenceKey(key, draft.Occurrence())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.occurrences[occKey]; exists {
		return nil, ErrDuplicateTransaction
	}

	now := s.now()
	draft.Metadata.Occurrence = draft.Occurrence()
	tx := models.Transaction{
		TransactionDraft: draft,
		ID:               uuid.NewString(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx = cloneTransaction(tx)
	s.transactions[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	s.occurrences[occKey] = tx.ID
	s.matchCounts[key.String()]++

	out := cloneTransaction(tx)
	return &out, nil
}

// UpdateTransactionCategory writes the categorization state of one row.
func (s *MemoryStore) UpdateTransactionCategory(_ context.Context, id string, update CategoryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return ErrNotFound
	}
	tx.CategoryID = update.CategoryID
	tx.IsCategorizedByAI = update.IsCategorizedByAI
	tx.AIConfidence = update.AIConfidence
	tx.UpdatedAt = s.now()
	s.transactions[id] = cloneTransaction(tx)
	return nil
}

// FindTransaction returns a transaction by id.
func (s *MemoryStore) FindTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTransaction(tx)
	return &out, nil
}

// ListTransactions returns matching transactions in insertion order, or
// newest first when requested.
func (s *MemoryStore) ListTransactions(_ context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := slices.Clone(s.txOrder)
	if filter.NewestFirst {
		slices.Reverse(order)
	}
	out := []models.Transaction{}
	for _, id := range order {
		tx := s.transactions[id]
		if !filter.Matches(tx) {
			continue
		}
		out = append(out, cloneTransaction(tx))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// FindCategoryByName looks a category up by exact name.
func (s *MemoryStore) FindCategoryByName(_ context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Name == name {
			out := c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// ListCategories returns all categories sorted by name.
func (s *MemoryStore) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveCategory inserts or replaces a category. With an empty ID an existing
// category of the same name is updated.
func (s *MemoryStore) SaveCategory(_ context.Context, category *models.Category) error {
	if category == nil || strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("save category: name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if category.ID == "" {
		for id, c := range s.categories {
			if c.Name == category.Name {
				category.ID = id
				break
			}
		}
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	s.categories[category.ID] = *category
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Storage = (*MemoryStore)(nil)
