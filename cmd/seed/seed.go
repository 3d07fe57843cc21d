// Package seed loads categories, cards and mappings into storage
package seed

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/store"

	"github.com/spf13/cobra"
)

var (
	seedFile string
	userID   string
)

// Cmd represents the seed command
var Cmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default categories, cards and mappings",
	Long: `Create the categories, credit cards and CSV mappings of a seed file, or of the
built-in defaults when no file is given. Existing records are left untouched.`,
	RunE: seedFunc,
}

func init() {
	Cmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed YAML file (default: built-in seed)")
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the seeded credit cards (optional)")
}

func seedFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	data, err := store.LoadSeed(seedFile)
	if err != nil {
		return err
	}
	result, err := store.ApplySeed(cmd.Context(), c.GetStorage(), data, userID, root.GetLogger())
	if err != nil {
		return fmt.Errorf("error applying seed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories, %d credit cards, %d mappings\n",
		result.Categories, result.CreditCards, result.Mappings)
	return nil
}
