package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/sluice/internal/presentation/tui"
	"github.com/aretw0/sluice/pkg/spec"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Path            string
	LogLevel        string
	Debug           bool
	Quiet           bool
	MetricsTextfile string
	LockRedis       string
	LockTTL         time.Duration
}

// Execute handles the 'run' command logic: load, run and report one migration.
func Execute(opts RunOptions, stdout, stderr io.Writer) error {
	logger, err := createLogger(stderr, opts.LogLevel, opts.Debug)
	if err != nil {
		return err
	}

	path, err := resolveMigration(opts.Path)
	if err != nil {
		return err
	}
	m, err := spec.Load(path)
	if err != nil {
		return err
	}

	eng, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("Failed to close engine resources", "err", err)
		}
	}()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	start := time.Now()
	sum, runErr := eng.Run(sigCtx, m)

	if eng.metrics != nil {
		if err := eng.metrics.WriteTextfile(opts.MetricsTextfile); err != nil {
			logger.Error("Failed to write metrics", "path", opts.MetricsTextfile, "err", err)
		}
	}

	if runErr != nil {
		if sig := sigCtx.Signal(); sig != nil && !opts.Quiet {
			printSystemMessage(stdout, "Interrupted by %s after %d records.", sig, sum.Read)
		} else if !opts.Quiet {
			tui.PrintFailure(stdout, m.Name, sum, runErr)
		}
		if err := handleExecutionError(runErr); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	}

	if !opts.Quiet {
		tui.PrintSummary(stdout, m.Name, sum, time.Since(start))
	}
	return nil
}
