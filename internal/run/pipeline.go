// Package run orchestrates a billing sync: fetch the spreadsheet, aggregate
// per account, snapshot to disk, push to the CRM.
package run

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/billsync/internal/aggregate"
	"github.com/gyeh/billsync/internal/config"
	"github.com/gyeh/billsync/internal/crm"
	"github.com/gyeh/billsync/internal/history"
	"github.com/gyeh/billsync/internal/model"
	"github.com/gyeh/billsync/internal/sheet"
	"github.com/gyeh/billsync/internal/snapshot"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Deps carries the pipeline's external collaborators. CRM may be nil when
// pushing is disabled; History may be nil when no DSN is configured.
type Deps struct {
	HTTPClient *http.Client
	CRM        *crm.Client
	History    *history.Store
}

// Run executes one full sync: fetch → aggregate → snapshot → resolve fields →
// push → verify. A failed upsert for one account is logged and skipped; only
// fetch, aggregation, snapshot and field resolution abort the run.
func Run(ctx context.Context, deps Deps, log zerolog.Logger, cfg *config.Config) (*model.RunSummary, error) {
	totalStart := time.Now()
	summary := &model.RunSummary{
		RunID:     uuid.New(),
		StartedAt: totalStart.UTC(),
	}
	log = log.With().Stringer("run_id", summary.RunID).Logger()

	// Phase 1: Fetch
	log.Info().Str("url", cfg.SheetURL).Msg("fetching spreadsheet")
	fetchStart := time.Now()
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	table, err := sheet.Fetch(ctx, httpClient, cfg.SheetURL)
	if err != nil {
		return nil, &PipelineError{Phase: "fetch", Err: err}
	}
	summary.RowsRead = len(table.Rows)
	summary.DurationFetch = time.Since(fetchStart)
	log.Info().Int("rows", summary.RowsRead).Dur("took", summary.DurationFetch).Msg("spreadsheet fetched")

	// Phase 2: Aggregate
	aggStart := time.Now()
	res, err := aggregate.BuildCumulative(table, cfg.AggregateOptions())
	if err != nil {
		return nil, &PipelineError{Phase: "aggregate", Err: err}
	}
	summary.Accounts = len(res.Records)
	for _, rec := range res.Records {
		summary.TotalPaid += rec.TotalPaid
	}
	summary.DurationAggregate = time.Since(aggStart)
	log.Info().
		Int("accounts", summary.Accounts).
		Str("amount_column", res.AmountColumn).
		Float64("total_paid", summary.TotalPaid).
		Msg("aggregation complete")

	// Phase 3: Snapshot
	if err := snapshot.WriteCSV(cfg.OutPath, res); err != nil {
		return nil, &PipelineError{Phase: "snapshot", Err: err}
	}
	summary.SnapshotPath = cfg.OutPath
	log.Info().Str("path", cfg.OutPath).Msg("snapshot written")
	if cfg.ParquetPath != "" {
		if err := snapshot.WriteParquet(cfg.ParquetPath, res.Records); err != nil {
			return nil, &PipelineError{Phase: "snapshot", Err: err}
		}
		log.Info().Str("path", cfg.ParquetPath).Msg("parquet snapshot written")
	}

	if !cfg.Push {
		log.Info().Msg("push disabled, stopping after snapshot")
		summary.DurationTotal = time.Since(totalStart)
		saveHistory(ctx, deps.History, log, summary, res.Records)
		return summary, nil
	}

	// Phase 4: Resolve custom field ids
	ids, err := deps.CRM.ResolveFieldIDs(ctx)
	if err != nil {
		return nil, &PipelineError{Phase: "resolve_fields", Err: err}
	}
	log.Info().Int("fields", len(ids)).Msg("custom field ids resolved")

	// Phase 5: Push
	pushStart := time.Now()
	for i := range res.Records {
		rec := &res.Records[i]
		contactID, err := deps.CRM.UpsertContact(ctx, rec, ids)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &PipelineError{Phase: "push", Err: ctx.Err()}
			}
			summary.PushFailed++
			log.Error().Err(err).Str("account", rec.AccountID).Msg("upsert failed, skipping account")
			continue
		}
		summary.Pushed++
		log.Debug().Str("account", rec.AccountID).Str("contact_id", contactID).Msg("contact upserted")
	}
	summary.DurationPush = time.Since(pushStart)
	log.Info().
		Int("pushed", summary.Pushed).
		Int("failed", summary.PushFailed).
		Dur("took", summary.DurationPush).
		Msg("push complete")

	// Phase 6: Verify (warn-only readback of the top account)
	if summary.Pushed > 0 {
		email := crm.AnchorEmail(res.Records[0].AccountID)
		if _, err := deps.CRM.VerifyContact(ctx, email); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("post-push verification failed")
		} else {
			summary.Verified = true
		}
	}

	summary.DurationTotal = time.Since(totalStart)
	saveHistory(ctx, deps.History, log, summary, res.Records)
	return summary, nil
}

// saveHistory records the run when a store is configured. Failure to record
// never fails the run itself.
func saveHistory(ctx context.Context, store *history.Store, log zerolog.Logger, summary *model.RunSummary, records []model.AccountRecord) {
	if store == nil {
		return
	}
	if err := store.SaveRun(ctx, summary, records); err != nil {
		log.Warn().Err(err).Msg("failed to record run history")
	}
}
