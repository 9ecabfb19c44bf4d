package run

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/billsync/internal/crm"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		Backoff:     func(int) time.Duration { return time.Millisecond },
		Classify:    IsTransient,
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := LinearBackoff(time.Minute, 5*time.Minute)
	cases := map[int]time.Duration{
		1:  time.Minute,
		2:  2 * time.Minute,
		5:  5 * time.Minute,
		10: 5 * time.Minute, // capped
	}
	for attempt, want := range cases {
		if got := backoff(attempt); got != want {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"server_error", &crm.APIError{StatusCode: 502}, true},
		{"wrapped_server_error", fmt.Errorf("upsert: %w", &crm.APIError{StatusCode: 500}), true},
		{"not_found", &crm.APIError{StatusCode: 404}, false},
		{"unauthorized", &crm.APIError{StatusCode: 401}, false},
		{"connection_refused", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"plain_error", errors.New("bad column"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestPolicyDo_RecoversFromTransient(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), zerolog.Nop(), func() error {
		calls++
		if calls < 3 {
			return &crm.APIError{StatusCode: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestPolicyDo_PermanentAbortsImmediately(t *testing.T) {
	calls := 0
	wantErr := &crm.APIError{StatusCode: 404}
	err := fastPolicy(3).Do(context.Background(), zerolog.Nop(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the original error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent errors must not retry, got %d calls", calls)
	}
}

func TestPolicyDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), zerolog.Nop(), func() error {
		calls++
		return &crm.APIError{StatusCode: 500}
	})
	if err == nil {
		t.Fatal("expected final error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestPolicyDo_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return time.Hour },
		Classify:    IsTransient,
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := policy.Do(ctx, zerolog.Nop(), func() error {
		return &crm.APIError{StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
