package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billsync/internal/exitcode"
	"github.com/gyeh/billsync/internal/history"
	"github.com/gyeh/billsync/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply run-history schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or BILLSYNC_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := history.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := history.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.ConfigError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
