package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/billsync/internal/config"
	"github.com/gyeh/billsync/internal/crm"
	"github.com/gyeh/billsync/internal/exitcode"
	"github.com/gyeh/billsync/internal/history"
	"github.com/gyeh/billsync/internal/logging"
	"github.com/gyeh/billsync/internal/run"
)

var columnsFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, aggregate, snapshot and push the billing sheet",
	RunE:  runSync,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&cfg.SheetURL, "sheet-url", os.Getenv("SHEET_CSV_URL"), "Published CSV export URL of the billing sheet (or set SHEET_CSV_URL)")
	f.StringVar(&cfg.OutPath, "out", "cumulative_spending.csv", "Path for the CSV snapshot")
	f.StringVar(&cfg.ParquetPath, "parquet-out", "", "Optional path for a Parquet copy of the snapshot")
	f.BoolVar(&cfg.Push, "push", true, "Upsert aggregated accounts into the CRM")
	f.BoolVar(&cfg.Forever, "forever", false, "Keep syncing on an interval instead of running once")
	f.DurationVar(&cfg.Interval, "interval", 24*time.Hour, "Time between cycles with --forever")
	f.DurationVar(&cfg.JitterMax, "jitter-max", 2*time.Minute, "Random extra sleep added to each cycle")
	f.IntVar(&cfg.MaxRetries, "retries", 3, "Attempts per cycle before abandoning it")
	f.StringVar(&columnsFile, "columns", "", "YAML file overriding amount/carry-forward column names")
	rootCmd.AddCommand(runCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Token = os.Getenv("GHL_TOKEN")
	cfg.Defaults()
	if columnsFile != "" {
		if err := cfg.LoadFromFile(columnsFile); err != nil {
			log.Error().Err(err).Msg("loading column mappings failed")
			os.Exit(exitcode.ConfigError)
		}
	}

	validate := cfg.Validate
	if cfg.Push {
		validate = cfg.ValidateForPush
	}
	if err := validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	deps, cleanup, err := buildDeps(ctx, log, &cfg)
	if err != nil {
		log.Error().Err(err).Msg("setup failed")
		os.Exit(exitcode.DBConnError)
	}
	defer cleanup()

	policy := run.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxRetries

	summary, err := run.Loop(ctx, deps, log, &cfg, policy)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("shutting down")
		err = nil
	}
	if err != nil {
		var pErr *run.PipelineError
		if errors.As(err, &pErr) {
			log.Error().Err(pErr.Err).Str("phase", pErr.Phase).Msg("sync failed")
			switch pErr.Phase {
			case "fetch":
				os.Exit(exitcode.FetchError)
			case "aggregate", "resolve_fields":
				os.Exit(exitcode.ConfigError)
			default:
				os.Exit(exitcode.PushError)
			}
		}
		log.Error().Err(err).Msg("sync failed")
		os.Exit(exitcode.PushError)
	}
	if summary != nil && summary.PushFailed > 0 {
		log.Warn().Int("failed", summary.PushFailed).Msg("completed with per-account failures")
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

// buildDeps wires the optional CRM client and history store from config.
// The returned cleanup closes the history pool.
func buildDeps(ctx context.Context, log zerolog.Logger, c *config.Config) (run.Deps, func(), error) {
	deps := run.Deps{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
	cleanup := func() {}

	if c.Push {
		client, err := crm.NewClient(crm.Config{
			Token:      c.Token,
			LocationID: c.LocationID,
		})
		if err != nil {
			return run.Deps{}, cleanup, fmt.Errorf("crm client: %w", err)
		}
		deps.CRM = client
	}

	if c.DSN != "" {
		pool, err := history.NewPool(ctx, c.DSN)
		if err != nil {
			return run.Deps{}, cleanup, fmt.Errorf("history database: %w", err)
		}
		if err := history.ApplyMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return run.Deps{}, cleanup, fmt.Errorf("history migrations: %w", err)
		}
		deps.History = history.NewStore(pool)
		cleanup = pool.Close
	}

	return deps, cleanup, nil
}
