package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coffee() models.TransactionDraft {
	return models.TransactionDraft{
		UserID:      "user-1",
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: "CAFE DO PONTO",
		Amount:      decimal.RequireFromString("7.50"),
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: PolicyOccurrence},
		{in: "occurrence", want: PolicyOccurrence},
		{in: " EXACT ", want: PolicyExact},
		{in: "fuzzy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckOccurrencePolicy(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	// First run: two identical purchases on the same day are both new.
	first := NewDetector(s, PolicyOccurrence)
	for i := 1; i <= 2; i++ {
		d := coffee()
		dec, err := first.Check(ctx, &d)
		require.NoError(t, err)
		assert.False(t, dec.Duplicate)
		assert.Equal(t, i, dec.Occurrence)
		assert.Equal(t, i, d.Metadata.Occurrence)
		_, err = s.CreateTransaction(ctx, d)
		require.NoError(t, err)
	}

	// Re-ingesting the same file finds both as duplicates; a third copy is new.
	second := NewDetector(s, PolicyOccurrence)
	for i := 1; i <= 3; i++ {
		d := coffee()
		dec, err := second.Check(ctx, &d)
		require.NoError(t, err)
		assert.Equal(t, i <= 2, dec.Duplicate, "occurrence %d", i)
		assert.Equal(t, 2, dec.Existing)
	}
}

func TestCheckExactPolicy(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	det := NewDetector(s, PolicyExact)

	d := coffee()
	dec, err := det.Check(ctx, &d)
	require.NoError(t, err)
	require.False(t, dec.Duplicate)
	_, err = s.CreateTransaction(ctx, d)
	require.NoError(t, err)

	again := coffee()
	dec, err = det.Check(ctx, &again)
	require.NoError(t, err)
	assert.True(t, dec.Duplicate)
	assert.Equal(t, 1, dec.Occurrence)
}

func TestCheckDistinguishesKeyFields(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	_, err := s.CreateTransaction(ctx, coffee())
	require.NoError(t, err)
	det := NewDetector(s, PolicyOccurrence)

	variants := map[string]func(*models.TransactionDraft){
		"other user":        func(d *models.TransactionDraft) { d.UserID = "user-2" },
		"other day":         func(d *models.TransactionDraft) { d.Date = d.Date.AddDate(0, 0, 1) },
		"other description": func(d *models.TransactionDraft) { d.Description = "CAFE DA ESQUINA" },
		"other amount":      func(d *models.TransactionDraft) { d.Amount = decimal.RequireFromString("7.51") },
	}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			d := coffee()
			mutate(&d)
			dec, err := det.Check(ctx, &d)
			require.NoError(t, err)
			assert.False(t, dec.Duplicate)
		})
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	det := NewDetector(s, "")
	assert.Equal(t, PolicyOccurrence, det.Policy())

	d := coffee()
	ok, err := det.Exists(ctx, d.UserID, d.Date, d.Description, d.Amount)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateTransaction(ctx, d)
	require.NoError(t, err)
	ok, err = det.Exists(ctx, d.UserID, d.Date, d.Description, decimal.RequireFromString("7.5"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckStorageError(t *testing.T) {
	s := store.NewMockStorage()
	s.CountMatchingError = errors.New("db down")
	det := NewDetector(s, PolicyOccurrence)

	d := coffee()
	_, err := det.Check(context.Background(), &d)
	assert.ErrorIs(t, err, s.CountMatchingError)
}

func TestReset(t *testing.T) {
	det := NewDetector(store.NewMemoryStore(), PolicyOccurrence)
	d := coffee()
	_, err := det.Check(context.Background(), &d)
	require.NoError(t, err)

	det.Reset()
	d = coffee()
	dec, err := det.Check(context.Background(), &d)
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Occurrence)
}

func TestReleaseReusesOccurrence(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	det := NewDetector(s, PolicyOccurrence)

	// The first copy fails to store; the next identical row takes its place.
	failed := coffee()
	dec, err := det.Check(ctx, &failed)
	require.NoError(t, err)
	require.Equal(t, 1, dec.Occurrence)
	det.Release(failed)

	retry := coffee()
	dec, err = det.Check(ctx, &retry)
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Occurrence)
	assert.False(t, dec.Duplicate)
	_, err = s.CreateTransaction(ctx, retry)
	require.NoError(t, err)

	second := coffee()
	dec, err = det.Check(ctx, &second)
	require.NoError(t, err)
	assert.Equal(t, 2, dec.Occurrence)
	assert.False(t, dec.Duplicate)
}

func TestCheckStorageErrorKeepsOccurrence(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStorage()
	det := NewDetector(s, PolicyOccurrence)

	s.CountMatchingError = errors.New("db down")
	d := coffee()
	_, err := det.Check(ctx, &d)
	require.Error(t, err)

	s.CountMatchingError = nil
	d = coffee()
	dec, err := det.Check(ctx, &d)
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Occurrence)
}

func TestReleaseIgnoredForExactPolicy(t *testing.T) {
	det := NewDetector(store.NewMemoryStore(), PolicyExact)
	d := coffee()
	det.Release(d)
	dec, err := det.Check(context.Background(), &d)
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Occurrence)
}
