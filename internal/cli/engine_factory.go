package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sluice"
	redisadapter "github.com/aretw0/sluice/pkg/adapters/redis"
	"github.com/aretw0/sluice/pkg/observability"
)

// engine bundles an Engine with what the CLI must finish after the run.
type engine struct {
	*sluice.Engine
	metrics *observability.Metrics
	closers []func() error
}

func (e *engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// createEngine initializes a Sluice engine with standard CLI conventions.
func createEngine(opts RunOptions, logger *slog.Logger) (*engine, error) {
	e := &engine{}
	engineOpts := []sluice.Option{sluice.WithLogger(logger)}

	// 1. Hooks
	if opts.Debug {
		engineOpts = append(engineOpts, sluice.WithLifecycleHooks(createDebugHooks(logger)))
	}

	// 2. Metrics, written as a node_exporter textfile after the run
	if opts.MetricsTextfile != "" {
		e.metrics = observability.NewMetrics(prometheus.NewRegistry())
		engineOpts = append(engineOpts, sluice.WithMetrics(e.metrics))
	}

	// 3. Cross-process lock
	if opts.LockRedis != "" {
		redisOpts, err := backend.ParseURL(opts.LockRedis)
		if err != nil {
			return nil, fmt.Errorf("invalid --lock-redis: %w", err)
		}
		client := backend.NewClient(redisOpts)
		e.closers = append(e.closers, client.Close)
		engineOpts = append(engineOpts, sluice.WithLocker(redisadapter.NewLocker(client, "sluice:"), opts.LockTTL))
	}

	e.Engine = sluice.New(engineOpts...)
	return e, nil
}

var conventionalNames = []string{"migration.yaml", "migration.yml", "migration.json"}

// resolveMigration finds the migration file for path. A directory resolves to
// migration.{yaml,yml,json}, then to a file named after the directory.
func resolveMigration(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	candidates := append([]string{}, conventionalNames...)
	base := filepath.Base(path)
	if abs, err := filepath.Abs(path); err == nil {
		base = filepath.Base(abs)
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		candidates = append(candidates, base+ext)
	}
	for _, name := range candidates {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no migration file in %s", path)
}
