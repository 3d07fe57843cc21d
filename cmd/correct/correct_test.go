package correct_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/csv-ingest/cmd/correct"
	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/config"
	"fjacquet/csv-ingest/internal/container"
	"fjacquet/csv-ingest/internal/ingest"
	"fjacquet/csv-ingest/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg, err := config.Defaults()
	require.NoError(t, err)
	c, err := container.NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	root.SetContainer(c)
	t.Cleanup(root.Shutdown)

	path := filepath.Join(t.TempDir(), "fatura.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,title,amount\n2025-01-10,Uber Trip,25.50\n2025-01-11,POSTO SHELL,120.00\n"), 0600))
	_, err = c.GetOrchestrator().Ingest(context.Background(), ingest.Request{FilePath: path, UserID: "user-1", CreditCardID: "card-nubank"})
	require.NoError(t, err)
	return c
}

func TestCorrectCommand(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()

	txs, err := c.GetStorage().ListTransactions(ctx, store.TransactionFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.NotEmpty(t, txs)
	id := txs[0].ID

	var buf bytes.Buffer
	correct.Cmd.SetOut(&buf)
	correct.Cmd.SetErr(&buf)
	correct.Cmd.SetArgs([]string{"--transaction", id, "--category", "Lazer"})
	require.NoError(t, correct.Cmd.Execute())
	assert.Contains(t, buf.String(), `"is_categorized_by_ai": false`)

	tx, err := c.GetStorage().FindTransaction(ctx, id)
	require.NoError(t, err)
	lazer, err := c.GetStorage().FindCategoryByName(ctx, "Lazer")
	require.NoError(t, err)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, lazer.ID, *tx.CategoryID)
	assert.False(t, tx.IsCategorizedByAI)

	correct.Cmd.SetArgs([]string{"--transaction", id, "--category", "Unknown"})
	assert.Error(t, correct.Cmd.Execute())

	correct.Cmd.SetArgs([]string{"--transaction", "missing", "--category", "Lazer"})
	assert.Error(t, correct.Cmd.Execute())
}
