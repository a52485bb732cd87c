package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/offerwall/pkg/cache"
	"github.com/richxcame/offerwall/pkg/config"
	"github.com/richxcame/offerwall/pkg/logger"
	redisclient "github.com/richxcame/offerwall/pkg/redis"
)

// recentWindowLimit caps how many completions feed one snapshot. Heavy users
// are judged on their most recent activity, which keeps the query bounded.
const recentWindowLimit = 100

// BehaviorAnalyzer builds per-user activity snapshots and labels suspicious
// patterns. It is the most expensive check, so snapshots can be served from a
// short-lived cache; a nil cache disables that without changing behavior.
type BehaviorAnalyzer struct {
	ledger LedgerReader
	cache  *cache.Manager
	cfg    config.FraudConfig
	now    func() time.Time
}

func NewBehaviorAnalyzer(l LedgerReader, c *cache.Manager, cfg config.FraudConfig) *BehaviorAnalyzer {
	return &BehaviorAnalyzer{ledger: l, cache: c, cfg: cfg, now: time.Now}
}

// Policy is fail-open: losing the snapshot only reduces scoring sensitivity
func (a *BehaviorAnalyzer) Policy() FailurePolicy { return FailOpen }

// Snapshot returns the user's activity aggregates, from cache when a fresh
// one exists. Cache failures are logged and ignored; the ledger is the
// source of truth.
func (a *BehaviorAnalyzer) Snapshot(ctx context.Context, userID uuid.UUID) (*ActivitySnapshot, error) {
	if a.cache != nil {
		var cached ActivitySnapshot
		err := a.cache.Get(ctx, cache.Keys.Snapshot(userID.String()), &cached)
		if err == nil {
			return &cached, nil
		}
		if !redisclient.IsNil(err) {
			logger.WarnContext(ctx, "snapshot cache read failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	snap, err := a.compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, cache.Keys.Snapshot(userID.String()), snap, a.cfg.SnapshotCacheTTL()); err != nil {
			logger.WarnContext(ctx, "snapshot cache write failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
	return snap, nil
}

func (a *BehaviorAnalyzer) compute(ctx context.Context, userID uuid.UUID) (*ActivitySnapshot, error) {
	now := a.now()
	records, err := a.ledger.RecentCompleted(ctx, userID, now.Add(-24*time.Hour), recentWindowLimit)
	if err != nil {
		return nil, fmt.Errorf("behavior analysis: %w", err)
	}

	snap := &ActivitySnapshot{
		UserID:             userID,
		CompletionsLast24h: len(records),
		ComputedAt:         now,
	}

	hourAgo := now.Add(-time.Hour)
	providers := make(map[string]struct{})
	roundAmounts := 0
	for _, rec := range records {
		if rec.CreatedAt.After(hourAgo) {
			snap.CompletionsLastHour++
		}
		providers[rec.ProviderID] = struct{}{}
		if rec.ConvertedAmount%100 == 0 {
			roundAmounts++
		}
	}
	snap.UniqueProviders = len(providers)

	// Records arrive newest first; the average gap between consecutive
	// completions approximates how fast the user clears offers.
	if len(records) >= 2 {
		var total time.Duration
		for i := 0; i < len(records)-1; i++ {
			total += records[i].CreatedAt.Sub(records[i+1].CreatedAt)
		}
		snap.AvgCompletionSeconds = total.Seconds() / float64(len(records)-1)
	}

	snap.Patterns = a.patterns(snap, roundAmounts)
	return snap, nil
}

// patterns labels the snapshot. Thresholds are deliberately loose; labels
// feed the composite score rather than triggering actions on their own.
func (a *BehaviorAnalyzer) patterns(snap *ActivitySnapshot, roundAmounts int) []string {
	var labels []string

	if snap.CompletionsLastHour > 10 {
		labels = append(labels, PatternHighCompletionRate)
	}
	// The speed label needs enough records to be meaningful. A zero average
	// over a real history means back-to-back completions, the fastest case.
	if snap.CompletionsLast24h >= 6 && snap.AvgCompletionSeconds < 60 {
		labels = append(labels, PatternFastCompletions)
	}
	if snap.UniqueProviders == 1 && snap.CompletionsLast24h > 20 {
		labels = append(labels, PatternSingleProvider)
	}
	if snap.CompletionsLast24h > 10 && float64(roundAmounts) > 0.8*float64(snap.CompletionsLast24h) {
		labels = append(labels, PatternRoundAmounts)
	}

	return labels
}
