// Package train refreshes the classifier training data
package train

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"

	"github.com/spf13/cobra"
)

var userID string

// Cmd represents the train command
var Cmd = &cobra.Command{
	Use:   "train",
	Short: "Refresh the training examples used in classifier prompts",
	Long: `Collect the most recent categorized transactions of a user and cache them as
training examples for the external classifier prompt.`,
	RunE: trainFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the transactions")
	_ = Cmd.MarkFlagRequired("user")
}

func trainFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer()
	if err != nil {
		return err
	}

	examples, err := c.GetTrainer().WarmTrainingData(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("error refreshing training data: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cached %d training examples\n", len(examples))
	return nil
}
