package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billsync/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "billsync",
	Short: "Patient billing spreadsheet → CRM sync",
	Long:  "Fetches a published billing spreadsheet, aggregates cumulative spend per patient account, snapshots the result to disk and upserts it into LeadConnector contacts.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("BILLSYNC_DB_URL"), "Postgres connection string for run history (or set BILLSYNC_DB_URL)")
	pf.StringVar(&cfg.LocationID, "location-id", os.Getenv("GHL_LOCATION_ID"), "CRM location id (or set GHL_LOCATION_ID)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
}
