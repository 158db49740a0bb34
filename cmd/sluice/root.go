package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sluice",
	Short: "Sluice moves records between legacy systems",
	Long: `Sluice runs record-oriented data migrations described in YAML or JSON files:
a source, a sink, and the field steps that turn one into the other.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}

// migrationPath is the first argument, or the current directory.
func migrationPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
