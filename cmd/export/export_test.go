package export_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/csv-ingest/cmd/export"
	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/config"
	"fjacquet/csv-ingest/internal/container"
	"fjacquet/csv-ingest/internal/ingest"

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

func TestExportCommand(t *testing.T) {
	newContainer(t)
	output := filepath.Join(t.TempDir(), "out", "transactions.csv")

	var buf bytes.Buffer
	export.Cmd.SetOut(&buf)
	export.Cmd.SetArgs([]string{"--user", "user-1", "--output", output})
	require.NoError(t, export.Cmd.Execute())
	assert.Contains(t, buf.String(), "Exported 2 transactions")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "transaction_date")
	assert.Contains(t, string(data), "Transporte")
}
