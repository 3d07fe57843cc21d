// Package categorize handles single transaction categorization commands
package categorize

import (
	"fmt"
	"time"

	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/dateutils"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/textutils"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	description   string
	establishment string
	institution   string
	amount        string
	date          string
)

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize one transaction without storing it",
	Long: `Categorize one transaction through the cache, the external classifier, the
keyword table and the default category, and print the result as JSON.`,
	RunE: categorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&description, "description", "d", "", "Transaction description")
	Cmd.Flags().StringVarP(&establishment, "establishment", "e", "", "Establishment (extracted from the description when empty)")
	Cmd.Flags().StringVar(&institution, "institution", "", "Institution used to extract the establishment (optional)")
	Cmd.Flags().StringVarP(&amount, "amount", "a", "0", "Transaction amount (optional)")
	Cmd.Flags().StringVarP(&date, "date", "t", "", "Transaction date as YYYY-MM-DD (optional)")
	_ = Cmd.MarkFlagRequired("description")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	tx, err := buildTransaction()
	if err != nil {
		return err
	}

	catalogue, err := c.LoadCatalogue(cmd.Context())
	if err != nil {
		return fmt.Errorf("error loading categories: %w", err)
	}

	result := c.GetEngine().Categorize(cmd.Context(), tx, catalogue)
	return root.PrintJSON(cmd, result)
}

func buildTransaction() (models.Transaction, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	day := dateutils.ToCalendarDay(time.Now())
	if date != "" {
		parsed, err := time.Parse(dateutils.DateLayoutISO, date)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		day = parsed
	}

	estab := establishment
	if estab == "" {
		estab = textutils.ExtractEstablishment(description, institution)
	}

	return models.Transaction{
		TransactionDraft: models.TransactionDraft{
			Date:           day,
			Description:    description,
			Establishment:  estab,
			Amount:         value,
			RawDescription: description,
		},
	}, nil
}
