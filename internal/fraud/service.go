// Package fraud implements the admission-control gate for offer-wall reward
// completions. Every inbound completion passes through Service.CheckForFraud
// before any crediting work; the gate scores the event and answers allow,
// flag or block without ever writing to the reward ledger.
package fraud

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/offerwall/pkg/cache"
	"github.com/richxcame/offerwall/pkg/common"
	"github.com/richxcame/offerwall/pkg/config"
	"github.com/richxcame/offerwall/pkg/eventbus"
	"github.com/richxcame/offerwall/pkg/logger"
	"github.com/richxcame/offerwall/pkg/metrics"
)

const serviceSource = "fraudgate"

// Service coordinates the independent sub-checks and folds their results
// into a single decision. It is stateless across requests and safe for
// concurrent use.
type Service struct {
	ledger   LedgerReader
	flags    FlagRepository
	ips      IPRepository
	dup      *DuplicateChecker
	rate     *RateLimiter
	cooldown *CooldownChecker
	behavior *BehaviorAnalyzer
	bus      EventPublisher
	cfg      config.FraudConfig
	now      func() time.Time
}

// NewService wires the sub-checks over the given stores. cacheManager and
// bus may be nil; snapshot caching and event publishing are then disabled.
func NewService(l LedgerReader, flags FlagRepository, ips IPRepository, cacheManager *cache.Manager, bus EventPublisher, cfg config.FraudConfig) *Service {
	return &Service{
		ledger:   l,
		flags:    flags,
		ips:      ips,
		dup:      NewDuplicateChecker(l, cfg),
		rate:     NewRateLimiter(l, cfg),
		cooldown: NewCooldownChecker(l, cfg),
		behavior: NewBehaviorAnalyzer(l, cacheManager, cfg),
		bus:      bus,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CheckForFraud validates the event, runs the four sub-checks concurrently
// and returns the composite decision. A block decision persists its fraud
// flag before the method returns; if that write fails the decision is still
// returned together with the error so the caller can reject the event.
func (s *Service) CheckForFraud(ctx context.Context, event *CompletionEvent) (*RiskDecision, error) {
	if err := event.Validate(); err != nil {
		return nil, common.NewValidationError("invalid completion event", err)
	}

	timer := time.Now()
	defer func() {
		metrics.CheckDuration.Observe(time.Since(timer).Seconds())
	}()

	// Sub-checks never outlive the backing store timeout; a deadline hit is
	// a check failure handled by that check's policy.
	checkCtx := ctx
	if s.cfg.StoreTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout())
		defer cancel()
	}

	var (
		wg sync.WaitGroup

		dupResult  *DuplicateResult
		dupErr     error
		rateResult *RateLimitResult
		rateErr    error
		cdResult   *CooldownResult
		cdErr      error
		snapshot   *ActivitySnapshot
		behaveErr  error
	)

	// The checks read disjoint data and never write, so they fan out.
	// Each goroutine owns its own result variables.
	wg.Add(4)
	go func() {
		defer wg.Done()
		dupResult, dupErr = s.dup.Check(checkCtx, event)
	}()
	go func() {
		defer wg.Done()
		rateResult, rateErr = s.rate.Check(checkCtx, event.UserID)
	}()
	go func() {
		defer wg.Done()
		cdResult, cdErr = s.cooldown.Check(checkCtx, event.UserID)
	}()
	go func() {
		defer wg.Done()
		snapshot, behaveErr = s.behavior.Snapshot(checkCtx, event.UserID)
	}()
	wg.Wait()

	score := 0
	retryAfter := 0
	var reasons []string

	if dupErr != nil {
		metrics.CheckFailuresTotal.WithLabelValues("duplicate", string(FailClosed)).Inc()
		logger.ErrorContext(ctx, "duplicate check failed", zap.Error(dupErr))
		score += scoreDuplicateUnavailable
		reasons = append(reasons, "duplicate check unavailable")
	} else if dupResult.Duplicate {
		score += scoreDuplicate
		reasons = append(reasons, dupResult.Reason)
	}

	if rateErr != nil {
		metrics.CheckFailuresTotal.WithLabelValues("rate_limit", string(FailClosed)).Inc()
		logger.ErrorContext(ctx, "rate limit check failed", zap.Error(rateErr))
		score += scoreRateUnavailable
		reasons = append(reasons, "rate limit check unavailable")
	} else if !rateResult.Allowed {
		score += scoreRateLimit
		reasons = append(reasons, rateResult.Reason)
		if rateResult.RetryAfter > retryAfter {
			retryAfter = rateResult.RetryAfter
		}
	}

	if cdErr != nil {
		metrics.CheckFailuresTotal.WithLabelValues("cooldown", string(FailClosed)).Inc()
		logger.ErrorContext(ctx, "cooldown check failed", zap.Error(cdErr))
		score += scoreCooldownUnavailable
		reasons = append(reasons, "cooldown check unavailable")
	} else if !cdResult.Allowed {
		score += scoreCooldown
		reasons = append(reasons, cdResult.Reason)
		if cdResult.RetryAfter > retryAfter {
			retryAfter = cdResult.RetryAfter
		}
	}

	if behaveErr != nil {
		metrics.CheckFailuresTotal.WithLabelValues("behavior", string(FailOpen)).Inc()
		logger.WarnContext(ctx, "behavioral analysis unavailable, continuing without it",
			zap.String("user_id", event.UserID.String()),
			zap.Error(behaveErr))
		snapshot = nil
	}

	if snapshot != nil {
		accountScore := s.accountRiskScore(ctx, event, snapshot)
		if accountScore > score {
			score = accountScore
		}
		reasons = append(reasons, snapshot.Patterns...)
	}

	if score > 100 {
		score = 100
	}

	decision := &RiskDecision{
		RiskScore:  score,
		Reasons:    reasons,
		RetryAfter: retryAfter,
		CheckedAt:  s.now(),
	}
	switch {
	case score >= s.cfg.BlockThreshold:
		decision.Action = ActionBlock
		decision.IsFraudulent = true
	case score >= s.cfg.FlagThreshold:
		decision.Action = ActionFlag
	default:
		decision.Action = ActionAllow
	}

	metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	logger.InfoContext(ctx, "fraud check completed",
		zap.String("user_id", event.UserID.String()),
		zap.String("external_transaction_id", event.ExternalTransactionID),
		zap.String("provider_id", event.ProviderID),
		zap.Int("risk_score", decision.RiskScore),
		zap.String("action", string(decision.Action)),
		zap.Strings("reasons", decision.Reasons))

	if decision.Action == ActionBlock {
		if err := s.flags.Flag(ctx, event.UserID, strings.Join(decision.Reasons, "; ")); err != nil {
			logger.ErrorContext(ctx, "failed to persist fraud flag for blocked user",
				zap.String("user_id", event.UserID.String()),
				zap.Error(err))
			return decision, common.NewInternalServerError("failed to persist fraud flag", err)
		}
		s.publishBlocked(ctx, event, decision)
	}

	s.trackIP(ctx, event)
	return decision, nil
}

// accountRiskScore scores the user's aggregate behavior independently of the
// event being checked. The speed term needs at least two records; an average
// of zero over a real history counts as the fastest possible completions.
func (s *Service) accountRiskScore(ctx context.Context, event *CompletionEvent, snap *ActivitySnapshot) int {
	score := 0

	switch {
	case snap.CompletionsLastHour > 15:
		score += 30
	case snap.CompletionsLastHour > 10:
		score += 15
	}

	if snap.CompletionsLast24h >= 2 {
		switch {
		case snap.AvgCompletionSeconds < 30:
			score += 40
		case snap.AvgCompletionSeconds < 60:
			score += 20
		}
	}

	if snap.UniqueProviders == 1 && snap.CompletionsLast24h > 20 {
		score += 25
	}

	score += 10 * len(snap.Patterns)

	if snap.CompletionsLast24h > 30 {
		createdAt, err := s.ledger.AccountCreatedAt(ctx, event.UserID)
		if err != nil {
			// Account age is a refinement, not a gate
			logger.WarnContext(ctx, "account age lookup failed",
				zap.String("user_id", event.UserID.String()),
				zap.Error(err))
		} else if createdAt != nil && s.now().Sub(*createdAt) < 7*24*time.Hour {
			score += 20
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// trackIP updates the address record and surfaces the advisory signal.
// Failures here never affect the decision already made.
func (s *Service) trackIP(ctx context.Context, event *CompletionEvent) {
	assessment, err := s.ips.Track(ctx, event.IPAddress, event.UserID)
	if err != nil {
		metrics.CheckFailuresTotal.WithLabelValues("ip_tracking", string(FailOpen)).Inc()
		logger.WarnContext(ctx, "ip tracking unavailable",
			zap.String("ip_address", event.IPAddress),
			zap.Error(err))
		return
	}
	if !assessment.Suspicious {
		return
	}

	metrics.SuspiciousIPsTotal.WithLabelValues(assessment.Reason).Inc()
	logger.WarnContext(ctx, "suspicious ip activity",
		zap.String("ip_address", assessment.IPAddress),
		zap.String("reason", assessment.Reason),
		zap.Int("unique_users", assessment.UniqueUsers),
		zap.Int("request_count", assessment.Count))

	if s.bus != nil {
		data := eventbus.IPSuspiciousData{
			IPAddress:   assessment.IPAddress,
			UniqueUsers: assessment.UniqueUsers,
			Count:       assessment.Count,
			Reason:      assessment.Reason,
			DetectedAt:  s.now(),
		}
		if ev, err := eventbus.NewEvent("ip.suspicious", serviceSource, data); err == nil {
			if err := s.bus.Publish(ctx, eventbus.SubjectIPSuspicious, ev); err != nil {
				logger.WarnContext(ctx, "failed to publish ip event", zap.Error(err))
			}
		}
	}
}

func (s *Service) publishBlocked(ctx context.Context, event *CompletionEvent, decision *RiskDecision) {
	if s.bus == nil {
		return
	}
	data := eventbus.DecisionBlockedData{
		UserID:                event.UserID,
		ExternalTransactionID: event.ExternalTransactionID,
		ProviderID:            event.ProviderID,
		RiskScore:             decision.RiskScore,
		Reasons:               decision.Reasons,
		BlockedAt:             decision.CheckedAt,
	}
	ev, err := eventbus.NewEvent("decision.blocked", serviceSource, data)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, eventbus.SubjectDecisionBlocked, ev); err != nil {
		logger.WarnContext(ctx, "failed to publish block event",
			zap.String("user_id", event.UserID.String()),
			zap.Error(err))
	}
}

// IsFlagged exposes flag lookups for the admin surface
func (s *Service) IsFlagged(ctx context.Context, userID string) (bool, *FraudFlag, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return false, nil, err
	}
	return s.flags.IsFlagged(ctx, id)
}

// ListFlags returns all live fraud flags
func (s *Service) ListFlags(ctx context.Context) ([]FraudFlag, error) {
	return s.flags.List(ctx)
}

// ClearFlag removes a user's fraud flag ahead of its natural expiry
func (s *Service) ClearFlag(ctx context.Context, userID string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	return s.flags.Clear(ctx, id)
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.NewBadRequestError("invalid user id", err)
	}
	return id, nil
}
