package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [migration]",
	Short: "Run a migration",
	Long: `Loads the migration file (or migration.yaml in the given directory), opens its
endpoints and migrates every record. The first failing record halts the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel, _ := cmd.Flags().GetString("log-level")
		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")
		textfile, _ := cmd.Flags().GetString("metrics-textfile")
		lockRedis, _ := cmd.Flags().GetString("lock-redis")
		lockTTL, _ := cmd.Flags().GetDuration("lock-ttl")

		return cli.Execute(cli.RunOptions{
			Path:            migrationPath(args),
			LogLevel:        logLevel,
			Debug:           debug,
			Quiet:           quiet,
			MetricsTextfile: textfile,
			LockRedis:       lockRedis,
			LockTTL:         lockTTL,
		}, os.Stdout, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("debug", false, "Log every record and flush")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the run summary")
	runCmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	runCmd.Flags().String("lock-redis", "", "Redis URL used to lock the migration against concurrent runs")
	runCmd.Flags().Duration("lock-ttl", sluice.DefaultLockTTL, "Expiry of the migration lock")
}
