package run

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/billsync/internal/config"
	"github.com/gyeh/billsync/internal/model"
)

// Loop runs syncs until the context is cancelled. Each cycle is wrapped in
// the retry policy; a cycle that exhausts its retries is reported and
// abandoned, and the loop waits for the next cycle as usual. When
// cfg.Forever is false a single cycle runs and its outcome is returned.
// The returned summary is from the most recent completed cycle, nil when no
// cycle ever completed.
func Loop(ctx context.Context, deps Deps, log zerolog.Logger, cfg *config.Config, policy Policy) (*model.RunSummary, error) {
	var last *model.RunSummary
	for {
		err := policy.Do(ctx, log, func() error {
			summary, err := Run(ctx, deps, log, cfg)
			if err != nil {
				return err
			}
			last = summary
			log.Info().
				Int("accounts", summary.Accounts).
				Int("pushed", summary.Pushed).
				Int("push_failed", summary.PushFailed).
				Dur("took", summary.DurationTotal).
				Msg("sync complete")
			return nil
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return last, err
		}

		if !cfg.Forever {
			return last, err
		}
		if err != nil {
			log.Error().Err(err).Msg("sync abandoned after retries, waiting for next cycle")
		}

		// Jitter spreads cycles out so the run never lands on the exact same
		// time of day.
		wait := cfg.Interval
		if cfg.JitterMax > 0 {
			wait += time.Duration(rand.Int63n(int64(cfg.JitterMax)))
		}
		log.Info().Dur("sleep", wait).Msg("waiting for next cycle")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}
