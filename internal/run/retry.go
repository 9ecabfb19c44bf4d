package run

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/billsync/internal/crm"
)

// Policy decides how a failed run is retried.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Classify    func(err error) bool // true means transient, worth retrying
}

// DefaultPolicy retries transient failures up to three attempts with linear
// backoff capped at five minutes.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     LinearBackoff(time.Minute, 5*time.Minute),
		Classify:    IsTransient,
	}
}

// LinearBackoff returns step*attempt, capped at max.
func LinearBackoff(step, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := step * time.Duration(attempt)
		if d > max {
			return max
		}
		return d
	}
}

// IsTransient classifies errors worth retrying: server-side CRM failures,
// timeouts and connection-level faults. Client errors such as a 404 or a bad
// token never heal on retry.
func IsTransient(err error) bool {
	var apiErr *crm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Do invokes fn until it succeeds, the error is classified permanent, or the
// attempt budget is spent. The backoff sleep aborts early on context
// cancellation.
func (p Policy) Do(ctx context.Context, log zerolog.Logger, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !p.Classify(err) {
			log.Error().Err(err).Int("attempt", attempt).Msg("permanent failure, not retrying")
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Backoff(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("backoff", wait).
			Msg("transient failure, retrying")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
