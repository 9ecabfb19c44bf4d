package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/billsync/internal/aggregate"
)

// Config holds all runtime configuration for a billsync run.
type Config struct {
	SheetURL    string
	OutPath     string
	ParquetPath string // optional columnar copy of the snapshot
	DSN         string
	LogFormat   string // "text" or "json"

	Push    bool
	Forever bool

	Interval   time.Duration
	JitterMax  time.Duration
	MaxRetries int

	Token      string
	LocationID string

	// Column mapping overrides, loaded from the optional YAML file.
	AmountCandidates []string `yaml:"amount_candidates"`
	CarryForward     []string `yaml:"carry_forward"`
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	AmountCandidates []string `yaml:"amount_candidates"`
	CarryForward     []string `yaml:"carry_forward"`
}

// Defaults fills in values for everything the flags and file left unset.
func (c *Config) Defaults() {
	if c.OutPath == "" {
		c.OutPath = "cumulative_spending.csv"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.JitterMax < 0 {
		c.JitterMax = 0
	} else if c.JitterMax == 0 {
		c.JitterMax = 2 * time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if len(c.AmountCandidates) == 0 {
		c.AmountCandidates = aggregate.DefaultAmountCandidates
	}
	if len(c.CarryForward) == 0 {
		c.CarryForward = aggregate.DefaultCarryForward
	}
}

// LoadFromFile reads a YAML config file and merges its column mappings into
// Config. Empty lists fall back to the defaults.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if len(yc.AmountCandidates) > 0 {
		c.AmountCandidates = yc.AmountCandidates
	}
	if len(yc.CarryForward) > 0 {
		c.CarryForward = yc.CarryForward
	}
	return nil
}

// Validate checks the fields every run needs.
func (c *Config) Validate() error {
	if c.SheetURL == "" {
		return fmt.Errorf("--sheet-url or SHEET_CSV_URL is required")
	}
	if c.OutPath == "" {
		return fmt.Errorf("--out is required")
	}
	return nil
}

// ValidateForPush additionally checks CRM credentials. Snapshot-only runs
// skip this.
func (c *Config) ValidateForPush() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Token == "" {
		return fmt.Errorf("GHL_TOKEN is required when pushing")
	}
	if c.LocationID == "" {
		return fmt.Errorf("--location-id or GHL_LOCATION_ID is required when pushing")
	}
	return nil
}

// AggregateOptions converts the column mappings into aggregation options.
func (c *Config) AggregateOptions() aggregate.Options {
	return aggregate.Options{
		AmountCandidates: c.AmountCandidates,
		CarryForward:     c.CarryForward,
	}
}
