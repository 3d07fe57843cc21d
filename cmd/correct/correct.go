// Package correct handles manual category corrections
package correct

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"

	"github.com/spf13/cobra"
)

var (
	transactionID string
	categoryName  string
)

// Cmd represents the correct command
var Cmd = &cobra.Command{
	Use:   "correct",
	Short: "Assign a category to a transaction by hand",
	Long: `Assign a category to a stored transaction. The transaction is then no longer
flagged as automatically categorized and is used as training data.`,
	RunE: correctFunc,
}

func init() {
	Cmd.Flags().StringVarP(&transactionID, "transaction", "t", "", "Transaction id")
	Cmd.Flags().StringVarP(&categoryName, "category", "c", "", "Category name")
	_ = Cmd.MarkFlagRequired("transaction")
	_ = Cmd.MarkFlagRequired("category")
}

func correctFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	tx, err := c.GetApplier().ApplyManualCategory(cmd.Context(), transactionID, categoryName)
	if err != nil {
		return fmt.Errorf("error correcting transaction %s: %w", transactionID, err)
	}
	return root.PrintJSON(cmd, tx)
}
