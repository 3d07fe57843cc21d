// Package mapping administers the stored CSV column mappings
package mapping

import (
	"fmt"

	"fjacquet/csv-ingest/cmd/root"
	"fjacquet/csv-ingest/internal/store"

	"github.com/spf13/cobra"
)

var (
	institution  string
	creditCardID string
	activeOnly   bool
	testID       string
	validateID   string
	deactivateID string
	sample       string
)

// Cmd groups the mapping subcommands
var Cmd = &cobra.Command{
	Use:   "mapping",
	Short: "List, test, validate and deactivate CSV mappings",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		mappings, err := c.GetMappingService().List(cmd.Context(), store.MappingFilter{
			Institution:  institution,
			CreditCardID: creditCardID,
			ActiveOnly:   activeOnly,
		})
		if err != nil {
			return fmt.Errorf("error listing mappings: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, m := range mappings {
			status := "active"
			if !m.IsActive {
				status = "inactive"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Institution, m.CreditCardID, status)
		}
		return nil
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Parse a sample line with a mapping without storing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		result, err := c.GetMappingService().Test(cmd.Context(), testID, sample)
		if err != nil {
			return err
		}
		return root.PrintJSON(cmd, result)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate one mapping, or all of them when --id is omitted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		svc := c.GetMappingService()
		out := cmd.OutOrStdout()
		if validateID != "" {
			if err := svc.Validate(cmd.Context(), validateID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Mapping %s is valid\n", validateID)
			return nil
		}

		issues, err := svc.ValidateAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("error validating mappings: %w", err)
		}
		for _, issue := range issues {
			fmt.Fprintf(out, "%s (%s): %v\n", issue.MappingID, issue.MappingName, issue.Err)
		}
		if len(issues) > 0 {
			return fmt.Errorf("%d invalid mappings", len(issues))
		}
		fmt.Fprintln(out, "All mappings are valid")
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Mark a mapping inactive",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer()
		if err != nil {
			return err
		}
		if err := c.GetMappingService().Deactivate(cmd.Context(), deactivateID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mapping %s deactivated\n", deactivateID)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&institution, "institution", "", "Only list mappings of this institution")
	listCmd.Flags().StringVarP(&creditCardID, "card", "c", "", "Only list mappings of this credit card")
	listCmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active mappings")

	testCmd.Flags().StringVar(&testID, "id", "", "Mapping id")
	testCmd.Flags().StringVarP(&sample, "sample", "s", "", "Sample CSV line")
	_ = testCmd.MarkFlagRequired("id")
	_ = testCmd.MarkFlagRequired("sample")

	validateCmd.Flags().StringVar(&validateID, "id", "", "Mapping id (optional)")

	deactivateCmd.Flags().StringVar(&deactivateID, "id", "", "Mapping id")
	_ = deactivateCmd.MarkFlagRequired("id")

	Cmd.AddCommand(listCmd, testCmd, validateCmd, deactivateCmd)
}
