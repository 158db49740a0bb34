package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/sluice/internal/cli"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe [migration]",
	Short: "Print an overview of a migration",
	Long:  `Prints the endpoints, lookups and field steps of a migration as markdown, or as a Mermaid flowchart (graph LR).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return cli.Describe(migrationPath(args), format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown or mermaid")
}
