package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/offerwall/pkg/cache"
	"github.com/richxcame/offerwall/pkg/config"
	"github.com/richxcame/offerwall/pkg/logger"
	redisclient "github.com/richxcame/offerwall/pkg/redis"
)

// FlagStore keeps one expiring fraud flag per user in Redis. Expiry is
// enforced by key TTL, so flags disappear without a sweeper.
type FlagStore struct {
	redis redisclient.ClientInterface
	cfg   config.FraudConfig
	now   func() time.Time
}

var _ FlagRepository = (*FlagStore)(nil)

func NewFlagStore(r redisclient.ClientInterface, cfg config.FraudConfig) *FlagStore {
	return &FlagStore{redis: r, cfg: cfg, now: time.Now}
}

// Flag records a fraud flag for the user. An existing flag is overwritten
// with the new reason and a fresh expiry window.
func (s *FlagStore) Flag(ctx context.Context, userID uuid.UUID, reason string) error {
	flag := FraudFlag{
		UserID:    userID,
		Reason:    reason,
		FlaggedAt: s.now(),
	}
	data, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("failed to marshal fraud flag: %w", err)
	}

	if err := s.redis.SetWithExpiration(ctx, cache.Keys.Flag(userID.String()), string(data), s.cfg.FlagTTL()); err != nil {
		return fmt.Errorf("failed to store fraud flag: %w", err)
	}
	return nil
}

// IsFlagged reports whether the user carries a live flag. ExpiresAt is
// reconstructed from the key's remaining TTL.
func (s *FlagStore) IsFlagged(ctx context.Context, userID uuid.UUID) (bool, *FraudFlag, error) {
	key := cache.Keys.Flag(userID.String())
	data, err := s.redis.GetString(ctx, key)
	if err != nil {
		if redisclient.IsNil(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("failed to read fraud flag: %w", err)
	}

	var flag FraudFlag
	if err := json.Unmarshal([]byte(data), &flag); err != nil {
		return false, nil, fmt.Errorf("failed to unmarshal fraud flag: %w", err)
	}

	if ttl, err := s.redis.TTL(ctx, key); err == nil && ttl > 0 {
		flag.ExpiresAt = s.now().Add(ttl)
	}
	return true, &flag, nil
}

// List returns all live flags, most recent first. Flags that expire between
// enumeration and read are skipped.
func (s *FlagStore) List(ctx context.Context) ([]FraudFlag, error) {
	keys, err := s.redis.ScanKeys(ctx, cache.Keys.FlagPattern())
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud flags: %w", err)
	}

	flags := make([]FraudFlag, 0, len(keys))
	for _, key := range keys {
		data, err := s.redis.GetString(ctx, key)
		if err != nil {
			if redisclient.IsNil(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read fraud flag: %w", err)
		}

		var flag FraudFlag
		if err := json.Unmarshal([]byte(data), &flag); err != nil {
			logger.Warn("skipping corrupt fraud flag", zap.String("key", key), zap.Error(err))
			continue
		}
		flags = append(flags, flag)
	}

	sort.Slice(flags, func(i, j int) bool {
		return flags[i].FlaggedAt.After(flags[j].FlaggedAt)
	})
	return flags, nil
}

// Clear removes the user's flag. Clearing an absent flag is not an error.
func (s *FlagStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.redis.Delete(ctx, cache.Keys.Flag(userID.String())); err != nil {
		return fmt.Errorf("failed to clear fraud flag: %w", err)
	}
	return nil
}
