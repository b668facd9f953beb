// Command rinkstats is the hockey league data pipeline CLI.
//
// Usage:
//
//	rinkstats refresh --seasons 5,6
//	rinkstats ingest --categories schedule,skater_stats
//	rinkstats derive --seasons 5
//	rinkstats status
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jmorneau/rinkstats/internal/app"
	"github.com/jmorneau/rinkstats/internal/config"
	"github.com/jmorneau/rinkstats/internal/observability"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
	"github.com/jmorneau/rinkstats/internal/usecase"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "rinkstats",
		Short: "Hockey league data pipeline CLI",
	}

	root.AddCommand(refreshCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(deriveCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// refresh command
// --------------------------------------------------------------------------

func refreshCmd() *cobra.Command {
	var (
		seasons    []int64
		categories []string
		skipDerive bool
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Ingest every source and derive analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh("refresh", usecase.RefreshInput{
				Seasons:    seasons,
				Categories: categories,
				SkipDerive: skipDerive,
				MaxWorkers: workers,
			})
		},
	}
	cmd.Flags().Int64SliceVar(&seasons, "seasons", nil, "Season IDs to refresh; empty = all known seasons")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Categories to refresh; empty = all")
	cmd.Flags().BoolVar(&skipDerive, "skip-derive", false, "Skip the derivation stage after ingestion")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent worker count; 0 = from config")
	return cmd
}

// --------------------------------------------------------------------------
// ingest command
// --------------------------------------------------------------------------

func ingestCmd() *cobra.Command {
	var (
		seasons    []int64
		categories []string
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest feed and archive sources without deriving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh("ingest", usecase.RefreshInput{
				Seasons:    seasons,
				Categories: categories,
				SkipDerive: true,
				MaxWorkers: workers,
			})
		},
	}
	cmd.Flags().Int64SliceVar(&seasons, "seasons", nil, "Season IDs to ingest; empty = all known seasons")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Categories to ingest; empty = all")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent worker count; 0 = from config")
	return cmd
}

// --------------------------------------------------------------------------
// derive command
// --------------------------------------------------------------------------

func deriveCmd() *cobra.Command {
	var seasons []int64
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Recompute derived analytics from stored data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh("derive", usecase.RefreshInput{
				Seasons:    seasons,
				Categories: []string{usecase.CategoryDerive},
			})
		},
	}
	cmd.Flags().Int64SliceVar(&seasons, "seasons", nil, "Season IDs to derive; empty = all known seasons")
	return cmd
}

// --------------------------------------------------------------------------
// status command
// --------------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize stored coverage and the latest run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, c *app.Container) error {
				report, err := c.Status.Status(ctx)
				if err != nil {
					return err
				}
				out, err := sonic.ConfigDefault.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encode status report: %w", err)
				}
				fmt.Println(string(out))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runRefresh runs a refresh with the given input and reports the outcome.
// Categories where every task failed make the command exit non-zero;
// partial failures degrade the run but do not.
func runRefresh(name string, input usecase.RefreshInput) error {
	return runPipeline(func(ctx context.Context, c *app.Container) error {
		if input.MaxWorkers == 0 {
			input.MaxWorkers = c.Config.RefreshWorkers
		}

		start := time.Now()
		result, err := c.Refresh.Refresh(ctx, input)
		if err != nil {
			return err
		}

		c.Logger.Info(name+" finished",
			"run_id", result.RunID,
			"status", result.Status,
			"tasks", result.TaskCount,
			"succeeded", result.SuccessCount,
			"failed", result.FailedCount,
			"skipped", result.SkippedCount,
			"anomalies", result.AnomalyCount,
			"workers", result.WorkerCount,
			"duration", time.Since(start).Round(time.Millisecond),
		)
		if len(result.FailedCategories) > 0 {
			return fmt.Errorf("categories failed: %s", strings.Join(result.FailedCategories, ", "))
		}
		return nil
	})
}

// runPipeline handles config loading, logging, observability, and container
// wiring, then hands a cancellable context to fn.
func runPipeline(fn func(ctx context.Context, c *app.Container) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logger *logging.Logger
	if cfg.AppEnv == config.EnvDev {
		logger = logging.NewConsole(cfg.LogLevel)
	} else {
		logger = logging.NewJSON(cfg.LogLevel)
	}
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return fmt.Errorf("init uptrace: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pyroscope: %w", err)
	}
	defer func() {
		if err := stopProfiler(); err != nil {
			logger.Warn("profiler stop failed", "error", err)
		}
	}()

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("start pprof server: %w", err)
	}
	defer func() {
		if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
			logger.Warn("pprof shutdown failed", "error", err)
		}
	}()

	c, err := app.NewContainer(cfg, logger)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close container", "error", err)
		}
	}()

	return fn(ctx, c)
}
