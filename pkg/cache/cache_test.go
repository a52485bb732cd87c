package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient implements the store operations needed by cache.Manager
type MockRedisClient struct {
	mu       sync.RWMutex
	data     map[string]string
	expiry   map[string]time.Time
	getError error
	setError error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data:   make(map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (m *MockRedisClient) GetString(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getError != nil {
		return "", m.getError
	}
	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		return "", redis.Nil
	}
	val, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return val, nil
}

func (m *MockRedisClient) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value.(string)
	if expiration > 0 {
		m.expiry[key] = time.Now().Add(expiration)
	}
	return nil
}

func (m *MockRedisClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.expiry, key)
	}
	return nil
}

func (m *MockRedisClient) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockRedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.expiry[key]
	if !ok {
		return -1, nil
	}
	return time.Until(exp), nil
}

func (m *MockRedisClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *MockRedisClient) Close() error { return nil }

type snapshot struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

func TestManagerSetAndGet(t *testing.T) {
	manager := NewManager(NewMockRedisClient())
	ctx := context.Background()

	stored := snapshot{UserID: "u1", Count: 12}
	if err := manager.Set(ctx, Keys.Snapshot("u1"), stored, time.Minute); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	var loaded snapshot
	if err := manager.Get(ctx, Keys.Snapshot("u1"), &loaded); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if loaded != stored {
		t.Fatalf("expected %+v, got %+v", stored, loaded)
	}
}

func TestManagerGetMissReturnsNil(t *testing.T) {
	manager := NewManager(NewMockRedisClient())

	var loaded snapshot
	err := manager.Get(context.Background(), Keys.Snapshot("missing"), &loaded)
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	manager := NewManager(NewMockRedisClient())
	ctx := context.Background()

	if err := manager.Set(ctx, Keys.Snapshot("u1"), snapshot{UserID: "u1"}, time.Minute); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := manager.Delete(ctx, Keys.Snapshot("u1")); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	var loaded snapshot
	if err := manager.Get(ctx, Keys.Snapshot("u1"), &loaded); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyPatterns(t *testing.T) {
	if got := Keys.Flag("abc"); got != "fraud:flag:abc" {
		t.Fatalf("unexpected flag key %q", got)
	}
	if got := Keys.IPActivity("203.0.113.10"); got != "fraud:ip:203.0.113.10" {
		t.Fatalf("unexpected ip key %q", got)
	}
	if got := Keys.Snapshot("abc"); got != "fraud:snapshot:abc" {
		t.Fatalf("unexpected snapshot key %q", got)
	}
	if got := Keys.FlagPattern(); got != "fraud:flag:*" {
		t.Fatalf("unexpected flag pattern %q", got)
	}
}
