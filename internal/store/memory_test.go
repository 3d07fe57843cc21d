package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fjacquet/csv-ingest/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft(desc, amount string) models.TransactionDraft {
	return models.TransactionDraft{
		UserID:      "user-1",
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func testMapping(name, institution, card string) *models.MappingConfig {
	return &models.MappingConfig{
		Name:         name,
		Institution:  institution,
		CreditCardID: card,
		Columns:      models.ColumnMap{Date: 0, Description: 1, Amount: 2},
		DateFormats:  []string{"Y-m-d"},
		Delimiter:    ",",
		IsActive:     true,
	}
}

func TestMemoryStore_Mappings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := testMapping("Inter Padrão", "Inter", "card-inter")
	second := testMapping("Inter Simples", "Inter", "card-inter")
	nubank := testMapping("Nubank Padrão", "Nubank", "")
	require.NoError(t, s.SaveMapping(ctx, first))
	require.NoError(t, s.SaveMapping(ctx, second))
	require.NoError(t, s.SaveMapping(ctx, nubank))
	assert.NotEmpty(t, first.ID)

	byCard, err := s.FindActiveMappingByCard(ctx, "card-inter")
	require.NoError(t, err)
	assert.Equal(t, "Inter Padrão", byCard.Name)

	byInstitution, err := s.FindActiveMappingByInstitution(ctx, "nubank")
	require.NoError(t, err)
	assert.Equal(t, nubank.ID, byInstitution.ID)

	require.NoError(t, s.DeactivateMapping(ctx, first.ID))
	byCard, err = s.FindActiveMappingByCard(ctx, "card-inter")
	require.NoError(t, err)
	assert.Equal(t, "Inter Simples", byCard.Name)

	stored, err := s.FindMapping(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	active, err := s.ListMappings(ctx, MappingFilter{Institution: "Inter", ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := s.ListMappings(ctx, MappingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = s.FindActiveMappingByCard(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeactivateMapping(ctx, "missing"), ErrNotFound)
}

func TestMemoryStore_MappingIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	m := testMapping("Nubank Padrão", "Nubank", "")
	require.NoError(t, s.SaveMapping(ctx, m))

	m.DateFormats[0] = "d/m/Y"
	stored, err := s.FindMapping(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y-m-d"}, stored.DateFormats)
}

func TestMemoryStore_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	fixed := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	tx, err := s.CreateTransaction(ctx, draft("Uber Trip", "25.50"))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, fixed, tx.CreatedAt)
	assert.Equal(t, 1, tx.Metadata.Occurrence)

	_, err = s.CreateTransaction(ctx, draft("Uber Trip", "25.5"))
	assert.ErrorIs(t, err, ErrDuplicateTransaction)

	second := draft("Uber Trip", "25.50")
	second.Metadata.Occurrence = 2
	_, err = s.CreateTransaction(ctx, second)
	require.NoError(t, err)

	key := KeyOf(draft("Uber Trip", "25.50"))
	count, err := s.CountMatchingTransactions(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	exists, err := s.TransactionExists(ctx, KeyOf(draft("Uber Trip", "30.00")))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, duplicates := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateTransaction(ctx, draft("Padaria", "12.00"))
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrDuplicateTransaction) {
				duplicates++
			} else if err == nil {
				created++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, 19, duplicates)
}

func TestMemoryStore_UpdateAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a, err := s.CreateTransaction(ctx, draft("Padaria", "10.00"))
	require.NoError(t, err)
	b, err := s.CreateTransaction(ctx, draft("Netflix", "39.90"))
	require.NoError(t, err)
	c, err := s.CreateTransaction(ctx, draft("Loja", "5.00"))
	require.NoError(t, err)

	catID := "cat-1"
	low := 0.4
	high := 0.9
	require.NoError(t, s.UpdateTransactionCategory(ctx, a.ID, CategoryUpdate{CategoryID: &catID, IsCategorizedByAI: true, AIConfidence: &high}))
	require.NoError(t, s.UpdateTransactionCategory(ctx, b.ID, CategoryUpdate{CategoryID: &catID, IsCategorizedByAI: true, AIConfidence: &low}))
	assert.ErrorIs(t, s.UpdateTransactionCategory(ctx, "missing", CategoryUpdate{}), ErrNotFound)

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{name: "all", filter: TransactionFilter{UserID: "user-1"}, want: []string{a.ID, b.ID, c.ID}},
		{name: "newest first limited", filter: TransactionFilter{NewestFirst: true, Limit: 2}, want: []string{c.ID, b.ID}},
		{name: "uncategorized", filter: TransactionFilter{OnlyUncategorized: true}, want: []string{c.ID}},
		{name: "uncategorized or low confidence", filter: TransactionFilter{OnlyUncategorized: true, BelowConfidence: 0.5}, want: []string{b.ID, c.ID}},
		{name: "categorized", filter: TransactionFilter{OnlyCategorized: true}, want: []string{a.ID, b.ID}},
		{name: "other user", filter: TransactionFilter{UserID: "user-2"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := s.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(txs))
			for _, tx := range txs {
				ids = append(ids, tx.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	found, err := s.FindTransaction(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found.AIConfidence)
	assert.Equal(t, 0.9, *found.AIConfidence)
	assert.True(t, found.IsCategorized())
}

func TestMemoryStore_Categories(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveCategory(ctx, &models.Category{Name: "Transporte"}))
	require.NoError(t, s.SaveCategory(ctx, &models.Category{Name: "Alimentação"}))

	again := &models.Category{Name: "Transporte", Color: "#4ecdc4"}
	require.NoError(t, s.SaveCategory(ctx, again))

	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alimentação", all[0].Name)

	found, err := s.FindCategoryByName(ctx, "Transporte")
	require.NoError(t, err)
	assert.Equal(t, again.ID, found.ID)
	assert.Equal(t, "#4ecdc4", found.Color)

	_, err = s.FindCategoryByName(ctx, "Viagem")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, s.SaveCategory(ctx, &models.Category{}))
}

func TestMockStorage_InjectedErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	m := NewMockStorage()
	m.CountMatchingError = boom
	m.CreateTransactionError = boom

	_, err := m.TransactionExists(ctx, KeyOf(draft("x", "1")))
	assert.ErrorIs(t, err, boom)
	_, err = m.CreateTransaction(ctx, draft("x", "1"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), m.CreateCalls.Load())
}
