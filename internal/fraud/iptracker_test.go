package fraud

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/richxcame/offerwall/pkg/redis"
)

func newTestIPTracker(t *testing.T) (*IPTracker, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	tracker := NewIPTracker(&redisclient.Client{Client: db}, testFraudConfig())
	return tracker, mock
}

func TestIPTracker_FirstSighting(t *testing.T) {
	tracker, mock := newTestIPTracker(t)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	key := "fraud:ip:203.0.113.10"
	expected, err := json.Marshal(IPActivityRecord{
		IPAddress: "203.0.113.10",
		Users:     []string{userID.String()},
		Count:     1,
		LastSeen:  now,
	})
	require.NoError(t, err)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(expected), 24*time.Hour).SetVal("OK")

	assessment, err := tracker.Track(context.Background(), "203.0.113.10", userID)

	require.NoError(t, err)
	assert.False(t, assessment.Suspicious)
	assert.Equal(t, 1, assessment.UniqueUsers)
	assert.Equal(t, 1, assessment.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIPTracker_RepeatUserDoesNotGrowSet(t *testing.T) {
	tracker, mock := newTestIPTracker(t)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	key := "fraud:ip:203.0.113.10"
	stored, _ := json.Marshal(IPActivityRecord{
		IPAddress: "203.0.113.10",
		Users:     []string{userID.String()},
		Count:     4,
		LastSeen:  now.Add(-time.Minute),
	})
	updated, _ := json.Marshal(IPActivityRecord{
		IPAddress: "203.0.113.10",
		Users:     []string{userID.String()},
		Count:     5,
		LastSeen:  now,
	})
	mock.ExpectGet(key).SetVal(string(stored))
	mock.ExpectSet(key, string(updated), 24*time.Hour).SetVal("OK")

	assessment, err := tracker.Track(context.Background(), "203.0.113.10", userID)

	require.NoError(t, err)
	assert.Equal(t, 1, assessment.UniqueUsers)
	assert.Equal(t, 5, assessment.Count)
	assert.False(t, assessment.Suspicious)
}

func TestIPTracker_ManyUsersFromOneAddress(t *testing.T) {
	tracker, mock := newTestIPTracker(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	existing := make([]string, 5)
	for i := range existing {
		existing[i] = uuid.New().String()
	}
	stored, _ := json.Marshal(IPActivityRecord{
		IPAddress: "198.51.100.7",
		Users:     existing,
		Count:     40,
		LastSeen:  now.Add(-time.Minute),
	})

	key := "fraud:ip:198.51.100.7"
	mock.ExpectGet(key).SetVal(string(stored))
	mock.Regexp().ExpectSet(key, `.*`, 24*time.Hour).SetVal("OK")

	assessment, err := tracker.Track(context.Background(), "198.51.100.7", uuid.New())

	require.NoError(t, err)
	assert.True(t, assessment.Suspicious)
	assert.Equal(t, "multiple users from same IP", assessment.Reason)
	assert.Equal(t, 6, assessment.UniqueUsers)
}

func TestIPTracker_HighRequestCount(t *testing.T) {
	tracker, mock := newTestIPTracker(t)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	stored, _ := json.Marshal(IPActivityRecord{
		IPAddress: "198.51.100.7",
		Users:     []string{userID.String()},
		Count:     100,
		LastSeen:  now.Add(-time.Minute),
	})

	key := "fraud:ip:198.51.100.7"
	mock.ExpectGet(key).SetVal(string(stored))
	mock.Regexp().ExpectSet(key, `.*`, 24*time.Hour).SetVal("OK")

	assessment, err := tracker.Track(context.Background(), "198.51.100.7", userID)

	require.NoError(t, err)
	assert.True(t, assessment.Suspicious)
	assert.Equal(t, "high request count from IP", assessment.Reason)
	assert.Equal(t, 101, assessment.Count)
}

func TestIPTracker_CorruptRecordRestartsWindow(t *testing.T) {
	tracker, mock := newTestIPTracker(t)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	key := "fraud:ip:203.0.113.10"
	mock.ExpectGet(key).SetVal("{not json")
	mock.Regexp().ExpectSet(key, `.*`, 24*time.Hour).SetVal("OK")

	assessment, err := tracker.Track(context.Background(), "203.0.113.10", userID)

	require.NoError(t, err)
	assert.False(t, assessment.Suspicious)
	assert.Equal(t, 1, assessment.Count)
}
