package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/companion_booking/internal/app"
	"github.com/Freeeeeet/companion_booking/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "booking",
		Short:        "Companion booking service",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newTickCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run загружает конфиг, собирает приложение и передаёт его в fn
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, logger *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return err
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting companion booking",
		zap.String("command", cmd.Name()),
		zap.String("environment", cfg.Environment),
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer a.Close()

	if err := fn(ctx, a, logger); err != nil {
		logger.Error("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API and transition scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app.App, _ *zap.Logger) error {
				if migrate {
					if err := a.Migrate(ctx); err != nil {
						return err
					}
				}
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before start")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run transition scheduler and archive worker without HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app.App, _ *zap.Logger) error {
				return a.RunWorker(ctx)
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app.App, _ *zap.Logger) error {
				return a.Migrate(ctx)
			})
		},
	}
}

func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run every scheduled transition once and print results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				results, err := a.Tick(ctx)
				for _, r := range results {
					logger.Info("Sweep finished",
						zap.String("task", r.Task),
						zap.Int("scanned", r.Scanned),
						zap.Int("succeeded", r.Succeeded),
						zap.Int("failed", r.Failed),
					)
				}
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			})
		},
	}
}
