package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/offerwall/pkg/cache"
	"github.com/richxcame/offerwall/pkg/config"
	redisclient "github.com/richxcame/offerwall/pkg/redis"
)

// Abuse thresholds for a single address within the tracking window
const (
	ipUniqueUserLimit = 5
	ipRequestLimit    = 100
)

// IPTracker records per-address activity in Redis and produces the advisory
// multi-account signal. The whole record expires together, so the window
// restarts after a quiet day rather than sliding per entry.
type IPTracker struct {
	redis redisclient.ClientInterface
	cfg   config.FraudConfig
	now   func() time.Time
}

var _ IPRepository = (*IPTracker)(nil)

func NewIPTracker(r redisclient.ClientInterface, cfg config.FraudConfig) *IPTracker {
	return &IPTracker{redis: r, cfg: cfg, now: time.Now}
}

// Policy is fail-open: the signal is advisory and never gates a decision
func (t *IPTracker) Policy() FailurePolicy { return FailOpen }

// Track upserts the address record, refreshes its expiry and assesses it.
// Count grows on every call; the user set only grows on first sight of a user.
func (t *IPTracker) Track(ctx context.Context, addr string, userID uuid.UUID) (*IPAssessment, error) {
	key := cache.Keys.IPActivity(addr)

	record := IPActivityRecord{IPAddress: addr}
	data, err := t.redis.GetString(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			// Corrupt record: start the window over rather than fail the event
			record = IPActivityRecord{IPAddress: addr}
		}
	case !redisclient.IsNil(err):
		return nil, fmt.Errorf("failed to read ip activity: %w", err)
	}

	if !record.HasUser(userID) {
		record.Users = append(record.Users, userID.String())
	}
	record.Count++
	record.LastSeen = t.now()

	updated, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ip activity: %w", err)
	}
	if err := t.redis.SetWithExpiration(ctx, key, string(updated), t.cfg.IPWindow()); err != nil {
		return nil, fmt.Errorf("failed to store ip activity: %w", err)
	}

	return t.assess(&record), nil
}

func (t *IPTracker) assess(record *IPActivityRecord) *IPAssessment {
	assessment := &IPAssessment{
		IPAddress:   record.IPAddress,
		UniqueUsers: len(record.Users),
		Count:       record.Count,
	}

	switch {
	case len(record.Users) > ipUniqueUserLimit:
		assessment.Suspicious = true
		assessment.Reason = "multiple users from same IP"
	case record.Count > ipRequestLimit:
		assessment.Suspicious = true
		assessment.Reason = "high request count from IP"
	}
	return assessment
}
