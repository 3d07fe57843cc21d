package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/csv-ingest/cmd/batch"
	"fjacquet/csv-ingest/cmd/categorize"
	"fjacquet/csv-ingest/cmd/correct"
	"fjacquet/csv-ingest/cmd/export"
	"fjacquet/csv-ingest/cmd/ingest"
	"fjacquet/csv-ingest/cmd/mapping"
	"fjacquet/csv-ingest/cmd/recategorize"
	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/cmd/seed"
	"fjacquet/csv-ingest/cmd/train"
	"fjacquet/csv-ingest/internal/config"
	"fjacquet/csv-ingest/internal/logging"
)

func init() {
	// Environment first so LOG_LEVEL from .env applies before any logger is built
	_, _ = config.LoadEnv()
	logging.SetAllLogLevels(config.LevelFromEnv())

	root.Init()

	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(recategorize.Cmd)
	root.Cmd.AddCommand(correct.Cmd)
	root.Cmd.AddCommand(train.Cmd)
	root.Cmd.AddCommand(mapping.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(seed.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.Cmd.ExecuteContext(ctx)
	stop()
	root.Shutdown()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
