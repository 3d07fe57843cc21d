package categorizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessor_KeepsInputOrder(t *testing.T) {
	ctx := context.Background()
	catalogue, s := seededCatalogue(t)
	descriptions := []string{"POSTO SHELL", "NETFLIX", "XYZ", "DROGASIL", "UBER TRIP", "PADARIA", "ZARA", "???"}

	var txs []models.Transaction
	for i, d := range descriptions {
		txs = append(txs, *createTransaction(t, s, fmt.Sprintf("%s %d", d, i)))
	}

	logger := logging.NewMockLogger()
	engine := NewDefaultEngine(EngineOptions{}, logger)
	processor := NewBatchProcessor(engine, NewApplier(s, s, 0.5), 4, logger)

	results := processor.Recategorize(ctx, txs, catalogue)

	require.Len(t, results, len(txs))
	want := []string{"Transporte", "Lazer", "Outros", "Saúde", "Transporte", "Alimentação", "Vestuário", "Outros"}
	for i, r := range results {
		assert.Equal(t, txs[i].ID, r.TransactionID)
		assert.Equal(t, want[i], r.Result.CategoryName, descriptions[i])
		assert.NoError(t, r.Err)
		assert.Equal(t, r.Result.Tier == models.TierKeyword, r.Applied)
	}

	stats := models.NewCategorizationStats()
	RecordResults(stats, results)
	snap := stats.Snapshot()
	assert.Equal(t, 8, snap.Total)
	assert.Equal(t, 6, snap.Successful)
	assert.Equal(t, 2, snap.Uncategorized)
}

func TestBatchProcessor_StoreFailure(t *testing.T) {
	catalogue, _ := seededCatalogue(t)
	mock := store.NewMockStorage()
	tx := *createTransaction(t, mock, "POSTO SHELL")
	mock.UpdateCategoryError = errors.New("db down")

	processor := NewBatchProcessor(NewDefaultEngine(EngineOptions{}, nil), NewApplier(mock, mock, 0.3), 2, logging.NewMockLogger())
	results := processor.Recategorize(context.Background(), []models.Transaction{tx}, catalogue)

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.False(t, results[0].Applied)

	stats := models.NewCategorizationStats()
	RecordResults(stats, results)
	assert.Equal(t, 1, stats.Snapshot().Failed)
}

func TestBatchProcessor_CanceledContext(t *testing.T) {
	catalogue, s := seededCatalogue(t)
	txs := []models.Transaction{*createTransaction(t, s, "A"), *createTransaction(t, s, "B")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(NewDefaultEngine(EngineOptions{}, nil), NewApplier(s, s, 0.3), 1, nil)
	results := processor.Recategorize(ctx, txs, catalogue)

	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, txs[i].ID, r.TransactionID)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(NewDefaultEngine(EngineOptions{}, nil), nil, 0, nil)
	assert.Empty(t, processor.Recategorize(context.Background(), nil, nil))
	assert.Positive(t, processor.Workers())
}
