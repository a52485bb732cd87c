package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/offerwall/pkg/config"
)

// RateLimiter enforces sliding-window completion ceilings per user. Windows
// are computed from the ledger at check time, so they slide continuously
// rather than resetting on calendar boundaries.
type RateLimiter struct {
	ledger LedgerReader
	cfg    config.FraudConfig
	now    func() time.Time
}

func NewRateLimiter(l LedgerReader, cfg config.FraudConfig) *RateLimiter {
	return &RateLimiter{ledger: l, cfg: cfg, now: time.Now}
}

// Policy is fail-closed: an unknown completion count must not be read as zero
func (r *RateLimiter) Policy() FailurePolicy { return FailClosed }

// Check compares completed counts in the trailing hour and day against the
// configured ceilings. Only completed transactions count toward either limit.
// The hourly ceiling is checked first, so when both are breached the reason
// and retry hint describe the hourly one.
func (r *RateLimiter) Check(ctx context.Context, userID uuid.UUID) (*RateLimitResult, error) {
	now := r.now()

	hourly, err := r.ledger.CountCompleted(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("rate limit: hourly count: %w", err)
	}
	if hourly >= r.cfg.HourlyLimit {
		return &RateLimitResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("hourly completion limit reached (%d/%d)", hourly, r.cfg.HourlyLimit),
			RetryAfter: 3600,
		}, nil
	}

	daily, err := r.ledger.CountCompleted(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("rate limit: daily count: %w", err)
	}
	if daily >= r.cfg.DailyLimit {
		return &RateLimitResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("daily completion limit reached (%d/%d)", daily, r.cfg.DailyLimit),
			RetryAfter: 86400,
		}, nil
	}

	return &RateLimitResult{Allowed: true}, nil
}
