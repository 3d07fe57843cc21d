package mapping

import (
	"context"
	"testing"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"
	"fjacquet/csv-ingest/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed, err := store.DefaultSeed()
	require.NoError(t, err)
	_, err = store.ApplySeed(ctx, s, seed, "user-1", nil)
	require.NoError(t, err)
	return NewService(s, nil), s
}

func TestServiceTestSample(t *testing.T) {
	svc, _ := seededService(t)

	res, err := svc.Test(context.Background(), "mapping-inter-padrao",
		`15/01/2025,DROGARIA SAO PAULO - 2/5,Saúde,Compra,"R$ 1.234,56"`)
	require.NoError(t, err)

	assert.Equal(t, "Inter Padrão", res.MappingName)
	assert.Equal(t, "Inter", res.Institution)
	assert.Equal(t, ",", res.Delimiter)
	assert.True(t, res.HasHeader)
	assert.Equal(t, "2025-01-15", res.Date)
	assert.Equal(t, "DROGARIA SAO PAULO", res.Establishment)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(res.Amount))
	assert.Equal(t, "Saúde", res.CategoryHint)
	assert.Equal(t, "Compra", res.TypeHint)
}

func TestServiceTestSampleErrors(t *testing.T) {
	svc, _ := seededService(t)

	_, err := svc.Test(context.Background(), "mapping-inter-padrao", "15/01/2025,LOJA")
	var colErr *parsererror.InsufficientColumnsError
	assert.ErrorAs(t, err, &colErr)

	_, err = svc.Test(context.Background(), "missing", "a,b,c")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceValidateAndDeactivate(t *testing.T) {
	svc, s := seededService(t)
	ctx := context.Background()

	require.NoError(t, svc.Validate(ctx, "mapping-nubank-padrao"))

	bad := validMapping("m-bad", "Sem datas", "Nubank", "")
	bad.DateFormats = nil
	require.NoError(t, s.SaveMapping(ctx, bad))

	var invalid *parsererror.InvalidMappingError
	assert.ErrorAs(t, svc.Validate(ctx, "m-bad"), &invalid)

	issues, err := svc.ValidateAll(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "m-bad", issues[0].MappingID)

	require.NoError(t, svc.Deactivate(ctx, "mapping-inter-simples"))
	active, err := svc.List(ctx, store.MappingFilter{Institution: "inter", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "mapping-inter-padrao", active[0].ID)

	assert.ErrorIs(t, svc.Deactivate(ctx, "missing"), store.ErrNotFound)
}

func TestServiceTestRowRejectsInvalidMapping(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	m := &models.MappingConfig{ID: "x", Name: "x", Institution: "Nubank"}
	_, err := svc.TestRow(m, models.RawRow{"a", "b", "c"})
	var invalid *parsererror.InvalidMappingError
	assert.ErrorAs(t, err, &invalid)
}
