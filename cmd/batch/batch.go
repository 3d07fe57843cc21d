// Package batch handles batch ingestion of a directory of statements
package batch

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/ingest"
	"fjacquet/csv-ingest/internal/logging"

	"github.com/spf13/cobra"
)

var (
	inputDir     string
	userID       string
	creditCardID string
	deleteAfter  bool
)

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch ingest CSV files from a directory",
	Long: `Batch ingest every .csv file of an input directory, in name order.

Each file is processed independently: a file that cannot be ingested is
reported and the run continues with the next one.

Example:
  csv-ingest batch --input-dir statements/ --user u-1`,
	RunE: batchFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputDir, "input-dir", "i", "", "Directory containing CSV files")
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the imported transactions")
	Cmd.Flags().StringVarP(&creditCardID, "card", "c", "", "Credit card the statements belong to (optional)")
	Cmd.Flags().BoolVar(&deleteAfter, "delete-after", false, "Delete each file once processed")
	_ = Cmd.MarkFlagRequired("input-dir")
	_ = Cmd.MarkFlagRequired("user")
}

func batchFunc(cmd *cobra.Command, args []string) error {
	logger := root.GetLogger()
	logger.Info("Batch command called", logging.F("input_dir", inputDir))

	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	results, err := c.GetOrchestrator().IngestDirectory(cmd.Context(), ingest.DirectoryRequest{
		InputDir:     inputDir,
		UserID:       userID,
		CreditCardID: creditCardID,
		DeleteAfter:  deleteAfter || c.GetConfig().Ingest.DeleteAfter,
	})
	if err != nil {
		return fmt.Errorf("error during batch ingestion: %w", err)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: failed: %v\n", r.FilePath, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s: processed=%d duplicates=%d errors=%d\n",
			r.FilePath, r.Report.Processed, r.Report.Duplicates, r.Report.ErrorCount())
	}
	processed, duplicates, rowErrors := ingest.Totals(results)
	fmt.Fprintf(out, "Batch completed: %d files, %d failed, processed=%d duplicates=%d errors=%d\n",
		len(results), failed, processed, duplicates, rowErrors)
	return nil
}
