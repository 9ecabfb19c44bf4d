package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/billsync/internal/model"
)

// Store records completed runs.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveRun inserts the run summary and its per-account rows in one
// transaction. Account rows go in via COPY since a large practice can have
// tens of thousands of accounts.
func (s *Store) SaveRun(ctx context.Context, summary *model.RunSummary, records []model.AccountRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO billsync.runs
		   (run_id, started_at, rows_read, accounts, total_paid,
		    snapshot_path, pushed, push_failed, verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		summary.RunID, summary.StartedAt, summary.RowsRead, summary.Accounts,
		summary.TotalPaid, summary.SnapshotPath, summary.Pushed,
		summary.PushFailed, summary.Verified)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"billsync", "run_accounts"},
		[]string{"run_id", "patient_account", "total_paid", "patient_name", "location_name", "insurance_name"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{
				summary.RunID,
				rec.AccountID,
				rec.TotalPaid,
				nullable(rec.Carried["PATIENT NAME"]),
				nullable(rec.Carried["LOCATION NAME"]),
				nullable(rec.Carried["INSURANCE NAME"]),
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy run accounts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunCount returns the number of recorded runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM billsync.runs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
