package store

import (
	"context"
	"sync/atomic"

	"fjacquet/csv-ingest/internal/models"
)

// MockStorage wraps a MemoryStore and lets tests inject failures.
type MockStorage struct {
	*MemoryStore

	// Error flags for testing error conditions
	FindMappingByCardError        error
	FindMappingByInstitutionError error
	FindCreditCardError           error
	CountMatchingError            error
	CreateTransactionError        error
	UpdateCategoryError           error
	ListCategoriesError           error
	ListTransactionsError         error

	// CreateCalls counts CreateTransaction invocations.
	CreateCalls atomic.Int64
}

// NewMockStorage creates a MockStorage over an empty MemoryStore.
func NewMockStorage() *MockStorage {
	return &MockStorage{MemoryStore: NewMemoryStore()}
}

// FindActiveMappingByCard returns the injected error or delegates.
func (m *MockStorage) FindActiveMappingByCard(ctx context.Context, creditCardID string) (*models.MappingConfig, error) {
	if m.FindMappingByCardError != nil {
		return nil, m.FindMappingByCardError
	}
	return m.MemoryStore.FindActiveMappingByCard(ctx, creditCardID)
}

// FindActiveMappingByInstitution returns the injected error or delegates.
func (m *MockStorage) FindActiveMappingByInstitution(ctx context.Context, institution string) (*models.MappingConfig, error) {
	if m.FindMappingByInstitutionError != nil {
		return nil, m.FindMappingByInstitutionError
	}
	return m.MemoryStore.FindActiveMappingByInstitution(ctx, institution)
}

// FindCreditCard returns the injected error or delegates.
func (m *MockStorage) FindCreditCard(ctx context.Context, id string) (*models.CreditCard, error) {
	if m.FindCreditCardError != nil {
		return nil, m.FindCreditCardError
	}
	return m.MemoryStore.FindCreditCard(ctx, id)
}

// CountMatchingTransactions returns the injected error or delegates.
func (m *MockStorage) CountMatchingTransactions(ctx context.Context, key MatchKey) (int, error) {
	if m.CountMatchingError != nil {
		return 0, m.CountMatchingError
	}
	return m.MemoryStore.CountMatchingTransactions(ctx, key)
}

// TransactionExists returns the injected count error or delegates.
func (m *MockStorage) TransactionExists(ctx context.Context, key MatchKey) (bool, error) {
	n, err := m.CountMatchingTransactions(ctx, key)
	return n > 0, err
}

// CreateTransaction returns the injected error or delegates.
func (m *MockStorage) CreateTransaction(ctx context.Context, draft models.TransactionDraft) (*models.Transaction, error) {
	m.CreateCalls.Add(1)
	if m.CreateTransactionError != nil {
		return nil, m.CreateTransactionError
	}
	return m.MemoryStore.CreateTransaction(ctx, draft)
}

// UpdateTransactionCategory returns the injected error or delegates.
func (m *MockStorage) UpdateTransactionCategory(ctx context.Context, id string, update CategoryUpdate) error {
	if m.UpdateCategoryError != nil {
		return m.UpdateCategoryError
	}
	return m.MemoryStore.UpdateTransactionCategory(ctx, id, update)
}

// ListCategories returns the injected error or delegates.
func (m *MockStorage) ListCategories(ctx context.Context) ([]models.Category, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.MemoryStore.ListCategories(ctx)
}

// ListTransactions returns the injected error or delegates.
func (m *MockStorage) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	if m.ListTransactionsError != nil {
		return nil, m.ListTransactionsError
	}
	return m.MemoryStore.ListTransactions(ctx, filter)
}

var _ Storage = (*MockStorage)(nil)
