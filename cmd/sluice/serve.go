package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/logging"
	httpAdapter "github.com/aretw0/sluice/pkg/adapters/http"
	"github.com/aretw0/sluice/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the HTTP control server",
	Long:  `Serves the migration files of a directory over HTTP: list, validate and run them, and scrape their metrics.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrationPath(args)
		port, _ := cmd.Flags().GetString("port")
		logLevel, _ := cmd.Flags().GetString("log-level")

		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger := logging.New(level)

		reg := prometheus.NewRegistry()
		engine := sluice.New(
			sluice.WithLogger(logger),
			sluice.WithMetrics(observability.NewMetrics(reg)),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: httpAdapter.NewHandler(engine, dir, httpAdapter.WithMetrics(reg), httpAdapter.WithLogger(logger)),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Sluice Server on %s\n", srv.Addr)
			fmt.Printf("Serving migrations from: %s\n", dir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give running migrations a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 30*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Sluice Server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
