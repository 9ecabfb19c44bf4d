package model

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary captures metrics from a single sync run.
type RunSummary struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	RowsRead     int
	Accounts     int
	TotalPaid    float64
	SnapshotPath string
	Pushed       int
	PushFailed   int
	Verified     bool

	DurationFetch     time.Duration
	DurationAggregate time.Duration
	DurationPush      time.Duration
	DurationTotal     time.Duration
}
