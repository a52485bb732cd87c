package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisclient "github.com/richxcame/offerwall/pkg/redis"
)

// Manager handles caching operations with JSON serialization
type Manager struct {
	redis redisclient.ClientInterface
}

// NewManager creates a new cache manager
func NewManager(redis redisclient.ClientInterface) *Manager {
	return &Manager{redis: redis}
}

// Get retrieves a cached value and unmarshals it into result
func (m *Manager) Get(ctx context.Context, key string, result interface{}) error {
	data, err := m.redis.GetString(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

// Set marshals and caches a value with expiration
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.redis.SetWithExpiration(ctx, key, string(data), ttl)
}

// Delete removes keys from cache
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	return m.redis.Delete(ctx, keys...)
}

// CacheKeys defines common cache key patterns
type CacheKeys struct{}

var Keys = CacheKeys{}

// Snapshot returns the cache key for a user's behavioral activity snapshot
func (k CacheKeys) Snapshot(userID string) string {
	return fmt.Sprintf("fraud:snapshot:%s", userID)
}

// Flag returns the storage key for a user's fraud flag
func (k CacheKeys) Flag(userID string) string {
	return fmt.Sprintf("fraud:flag:%s", userID)
}

// FlagPattern returns the enumeration pattern for all live fraud flags
func (k CacheKeys) FlagPattern() string {
	return "fraud:flag:*"
}

// IPActivity returns the storage key for an IP activity record
func (k CacheKeys) IPActivity(addr string) string {
	return fmt.Sprintf("fraud:ip:%s", addr)
}
