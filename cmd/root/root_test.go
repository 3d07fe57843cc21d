package root_test

import (
	"bytes"
	"context"
	"testing"

	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/config"
	"fjacquet/csv-ingest/internal/container"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "csv-ingest", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "ingest credit card CSV statements")
	assert.NotNil(t, root.Cmd.Run)
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
	assert.NotNil(t, root.Cmd.PersistentPostRun)
}

func TestRootCommand_Run(t *testing.T) {
	assert.NotPanics(t, func() {
		root.Cmd.Run(&cobra.Command{}, []string{})
	})
}

func TestGetContainer_NotInitialized(t *testing.T) {
	root.SetContainer(nil)
	_, err := root.GetContainer()
	assert.Error(t, err)
}

func TestSetContainerAndShutdown(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)
	c, err := container.NewContainer(context.Background(), cfg)
	require.NoError(t, err)

	root.SetContainer(c)
	got, err := root.GetContainer()
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Same(t, cfg, root.AppConfig)

	root.Shutdown()
	root.Shutdown()
	_, err = root.GetContainer()
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, root.PrintJSON(cmd, map[string]int{"processed": 2}))
	assert.JSONEq(t, `{"processed": 2}`, buf.String())
}
