package fraud

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/offerwall/pkg/config"
)

// CooldownChecker enforces minimum spacing between a user's completions,
// measured from the most recent completed transaction regardless of provider.
type CooldownChecker struct {
	ledger LedgerReader
	cfg    config.FraudConfig
	now    func() time.Time
}

func NewCooldownChecker(l LedgerReader, cfg config.FraudConfig) *CooldownChecker {
	return &CooldownChecker{ledger: l, cfg: cfg, now: time.Now}
}

// Policy is fail-closed, same as the other ledger-backed timing checks
func (c *CooldownChecker) Policy() FailurePolicy { return FailClosed }

// Check passes users with no completion history. The retry hint is rounded
// up to whole seconds and clamped at zero for clock-skewed timestamps.
func (c *CooldownChecker) Check(ctx context.Context, userID uuid.UUID) (*CooldownResult, error) {
	last, err := c.ledger.LastCompletedAt(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cooldown check: %w", err)
	}
	if last == nil {
		return &CooldownResult{Allowed: true}, nil
	}

	elapsed := c.now().Sub(*last)
	cooldown := c.cfg.Cooldown()
	if elapsed >= cooldown {
		return &CooldownResult{Allowed: true}, nil
	}

	retryAfter := int(math.Ceil((cooldown - elapsed).Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &CooldownResult{
		Allowed:    false,
		Reason:     fmt.Sprintf("completion cooldown active (%ds between completions)", c.cfg.CooldownSeconds),
		RetryAfter: retryAfter,
	}, nil
}
