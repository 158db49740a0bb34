package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sluice/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [migration]",
	Short: "Check a migration file",
	Long:  `Compiles the migration without opening its endpoints and reports every unknown op, bad argument or malformed step.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(migrationPath(args), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migration is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
