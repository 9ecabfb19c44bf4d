package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/gyeh/billsync/internal/exitcode"
)

func main() {
	// Local .env files carry the CRM token during development; missing file
	// is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.UsageError)
	}
}
