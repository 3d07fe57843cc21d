// Package recategorize handles batch re-categorization of stored transactions
package recategorize

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/categorizer"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/spf13/cobra"
)

var (
	userID            string
	onlyUncategorized bool
)

// Cmd represents the recategorize command
var Cmd = &cobra.Command{
	Use:   "recategorize",
	Short: "Re-run categorization over stored transactions",
	Long: `Re-run categorization over the stored transactions of a user.

With --only-uncategorized only transactions without a category, or categorized
automatically below the confidence threshold, are processed.`,
	RunE: recategorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the transactions")
	Cmd.Flags().BoolVar(&onlyUncategorized, "only-uncategorized", false, "Only process uncategorized or low confidence transactions")
	_ = Cmd.MarkFlagRequired("user")
}

func recategorizeFunc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	filter := store.TransactionFilter{UserID: userID}
	if onlyUncategorized {
		filter.OnlyUncategorized = true
		filter.BelowConfidence = c.GetApplier().Threshold()
	}
	txs, err := c.GetStorage().ListTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("error listing transactions: %w", err)
	}

	catalogue, err := c.LoadCatalogue(ctx)
	if err != nil {
		return fmt.Errorf("error loading categories: %w", err)
	}

	results := c.GetBatchProcessor().Recategorize(ctx, txs, catalogue)
	stats := models.NewCategorizationStats()
	categorizer.RecordResults(stats, results)
	stats.LogSummary(root.GetLogger(), "")

	return root.PrintJSON(cmd, stats.Snapshot())
}
