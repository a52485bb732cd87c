package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/offerwall/pkg/config"
)

// DuplicateChecker detects repeated crediting attempts. The ledger's unique
// constraint on the external transaction ID is the final guarantee; this
// check only rejects early, before any crediting work starts.
type DuplicateChecker struct {
	ledger LedgerReader
	cfg    config.FraudConfig
	now    func() time.Time
}

func NewDuplicateChecker(l LedgerReader, cfg config.FraudConfig) *DuplicateChecker {
	return &DuplicateChecker{ledger: l, cfg: cfg, now: time.Now}
}

// Policy is fail-closed: an unreachable ledger must not be read as "no duplicate"
func (c *DuplicateChecker) Policy() FailurePolicy { return FailClosed }

// Check runs the exact match first, then the near-duplicate heuristic.
// Failed transactions never count as duplicates; retrying a failed credit
// is legitimate.
func (c *DuplicateChecker) Check(ctx context.Context, event *CompletionEvent) (*DuplicateResult, error) {
	existing, err := c.ledger.FindByExternalID(ctx, event.ExternalTransactionID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: exact lookup: %w", err)
	}
	if existing != nil {
		return &DuplicateResult{
			Duplicate: true,
			Reason:    "transaction ID already exists",
		}, nil
	}

	since := c.now().Add(-time.Duration(c.cfg.NearDuplicateWindow) * time.Second)
	similar, err := c.ledger.FindSimilar(ctx, event.UserID, event.ProviderID, event.ConvertedAmount, since)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: similar lookup: %w", err)
	}
	if similar != nil {
		return &DuplicateResult{
			Duplicate: true,
			Reason:    "similar transaction within 1 minute",
		}, nil
	}

	return &DuplicateResult{Duplicate: false}, nil
}
