// Package ingest handles the single file ingestion command
package ingest

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"
	ingestsvc "fjacquet/csv-ingest/internal/ingest"

	"github.com/spf13/cobra"
)

var (
	filePath     string
	userID       string
	creditCardID string
	deleteAfter  bool
	threshold    float64
)

// Cmd represents the ingest command
var Cmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one credit card CSV statement",
	Long: `Ingest one CSV statement for a user. The column mapping is resolved from the
credit card, then from its institution, then from the fallback institution.
Duplicates are skipped, every new transaction is categorized, and a JSON
processing report is printed.

Example:
  csv-ingest ingest --file fatura.csv --user u-1 --card card-nubank`,
	RunE: ingestFunc,
}

func init() {
	Cmd.Flags().StringVarP(&filePath, "file", "f", "", "CSV file to ingest")
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the imported transactions")
	Cmd.Flags().StringVarP(&creditCardID, "card", "c", "", "Credit card the statement belongs to (optional)")
	Cmd.Flags().BoolVar(&deleteAfter, "delete-after", false, "Delete the file once processing finishes")
	Cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum confidence to persist a category (default from configuration)")
	_ = Cmd.MarkFlagRequired("file")
	_ = Cmd.MarkFlagRequired("user")
}

func ingestFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	report, err := c.GetOrchestrator().Ingest(cmd.Context(), ingestsvc.Request{
		FilePath:     filePath,
		UserID:       userID,
		CreditCardID: creditCardID,
		DeleteAfter:  deleteAfter || c.GetConfig().Ingest.DeleteAfter,
		Threshold:    threshold,
	})
	if report != nil {
		if perr := root.PrintJSON(cmd, report); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("ingest %s: %w", filePath, err)
	}
	return nil
}
