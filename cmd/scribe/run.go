package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"provenant-hq/scribe/pkg/backlog"
	"provenant-hq/scribe/pkg/config"
	"provenant-hq/scribe/pkg/ledger/monitor"
	"provenant-hq/scribe/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the compliance API server",
	Long: `Start the read-only compliance API server.

The server exposes decision records, LLM call records, version bundles,
and versioned histories for inspection, plus on-demand chain
verification. It also starts the backlog prune scheduler and, when
enabled, the integrity monitor.

Examples:
  # Start with default config
  scribe run

  # Start with custom config
  scribe run --config /etc/scribe/config.yaml

  # Override listen address
  scribe run --listen 0.0.0.0:8484

  # Validate config without starting the server
  scribe run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Scribe v%s\n", Version)
	fmt.Printf("Data directory: %s\n", cfg.DataDir)

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()
	fmt.Println("✓ Ledger, audit log, and stores opened")

	// Rebuild the derived query index from the log at startup; the log
	// is the source of truth, the index is disposable.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Ledger.Index.Enabled {
		if err := comps.ledger.RebuildIndex(ctx); err != nil {
			slog.Warn("failed to rebuild query index, falling back to scans", "error", err)
		} else {
			fmt.Println("✓ Query index rebuilt")
		}
	}

	// Backlog prune scheduler.
	backlogStore, err := backlog.NewStore(filepath.Join(cfg.DataDir, "backlog"))
	if err != nil {
		return err
	}
	pruner := backlog.NewPruner(backlogStore, &backlog.Config{
		RetentionDays: cfg.Backlog.RetentionDays,
		PruneSchedule: cfg.Backlog.PruneSchedule,
		Metrics:       comps.metrics,
	})
	if err := pruner.Start(ctx); err != nil {
		slog.Warn("failed to start backlog prune scheduler", "error", err)
	} else {
		defer pruner.Stop()
		if next := pruner.NextPruning(); next != nil {
			slog.Debug("backlog prune scheduler started", "next_pruning", next)
		}
	}

	// Integrity monitor, if enabled.
	if cfg.Ledger.Monitor.Enabled {
		mon, err := monitor.New(&monitor.Config{
			DebounceInterval: cfg.Ledger.Monitor.DebounceInterval,
		}, comps.ledger, comps.audit)
		if err != nil {
			return fmt.Errorf("failed to create integrity monitor: %w", err)
		}
		go func() {
			if err := mon.Watch(ctx); err != nil {
				slog.Error("integrity monitor exited", "error", err)
			}
		}()
		defer mon.Stop()
		fmt.Println("✓ Integrity monitor started")
	}

	if !cfg.Server.Enabled {
		fmt.Println("Server disabled; running schedulers only. Press Ctrl+C to stop.")
		<-ctx.Done()
		return nil
	}

	srv, err := server.New(server.Options{
		Config:      &cfg.Server,
		Ledger:      comps.ledger,
		Audit:       comps.audit,
		Bundles:     comps.bundles,
		Stores:      comps.stores,
		Metrics:     comps.metrics,
		MetricsPath: cfg.Telemetry.Metrics.Path,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal or context cancellation and shuts
	// down gracefully.
	return srv.Start(ctx)
}
