package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billsync/internal/crm"
	"github.com/gyeh/billsync/internal/exitcode"
	"github.com/gyeh/billsync/internal/logging"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Resolve and print the location's custom field ids",
	RunE:  runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

func runFields(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	client, err := crm.NewClient(crm.Config{
		Token:      os.Getenv("GHL_TOKEN"),
		LocationID: cfg.LocationID,
	})
	if err != nil {
		log.Error().Err(err).Msg("crm client setup failed")
		os.Exit(exitcode.UsageError)
	}

	ids, err := client.ResolveFieldIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("field resolution failed")
		os.Exit(exitcode.ConfigError)
	}

	for _, key := range crm.LogicalKeys {
		fmt.Printf("%-20s %s\n", key, ids[key])
	}
	return nil
}
