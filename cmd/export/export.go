// Package export writes stored transactions to CSV
package export

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"
	exportsvc "fjacquet/csv-ingest/internal/export"

	"github.com/spf13/cobra"
)

var (
	userID       string
	creditCardID string
	outputPath   string
)

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored transactions to a CSV file",
	Long: `Export the stored transactions of a user, with their category names, to a CSV
file using the configured export delimiter.`,
	RunE: exportFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the transactions")
	Cmd.Flags().StringVarP(&creditCardID, "card", "c", "", "Only export this credit card (optional)")
	Cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output CSV file")
	_ = Cmd.MarkFlagRequired("user")
	_ = Cmd.MarkFlagRequired("output")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	n, err := c.GetExporter().Export(cmd.Context(), exportsvc.Request{
		UserID:       userID,
		CreditCardID: creditCardID,
		OutputPath:   outputPath,
	})
	if err != nil {
		return fmt.Errorf("error exporting transactions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", n, outputPath)
	return nil
}
