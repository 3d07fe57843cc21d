package categorizer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seededCatalogue(t *testing.T) (*Catalogue, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed, err := store.DefaultSeed()
	require.NoError(t, err)
	_, err = store.ApplySeed(ctx, s, seed, "user-1", nil)
	require.NoError(t, err)
	catalogue, err := LoadCatalogue(ctx, s, seed.KeywordTable(), nil)
	require.NoError(t, err)
	return catalogue, s
}

func sampleTransaction(id, description, establishment, amount string) models.Transaction {
	return models.Transaction{
		ID: id,
		TransactionDraft: models.TransactionDraft{
			UserID:        "user-1",
			Date:          time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			Description:   description,
			Establishment: establishment,
			Amount:        decimal.RequireFromString(amount),
		},
	}
}

// fakeClassifier returns a fixed reply or error and counts calls.
type fakeClassifier struct {
	reply  Reply
	err    error
	delay  time.Duration
	calls  atomic.Int64
	mu     sync.Mutex
	prompt string
}

func (f *fakeClassifier) Classify(ctx context.Context, prompt string) (Reply, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompt = prompt
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Reply{}, f.err
	}
	return f.reply, nil
}

func (f *fakeClassifier) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompt
}
