package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/offerwall/internal/ledger"
)

func TestDuplicateChecker_NoDuplicate(t *testing.T) {
	ml := new(mockLedger)
	event := validEvent()
	ml.On("FindByExternalID", mock.Anything, event.ExternalTransactionID).Return(nil, nil)
	ml.On("FindSimilar", mock.Anything, event.UserID, event.ProviderID, event.ConvertedAmount, mock.Anything).Return(nil, nil)

	checker := NewDuplicateChecker(ml, testFraudConfig())
	result, err := checker.Check(context.Background(), event)

	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Empty(t, result.Reason)
}

func TestDuplicateChecker_SimilarWindowUsesConfiguredSeconds(t *testing.T) {
	ml := new(mockLedger)
	event := validEvent()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	ml.On("FindByExternalID", mock.Anything, event.ExternalTransactionID).Return(nil, nil)
	ml.On("FindSimilar", mock.Anything, event.UserID, event.ProviderID, event.ConvertedAmount, now.Add(-60*time.Second)).
		Return(&ledger.Record{UserID: event.UserID}, nil)

	checker := NewDuplicateChecker(ml, testFraudConfig())
	checker.now = func() time.Time { return now }
	result, err := checker.Check(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, "similar transaction within 1 minute", result.Reason)
	ml.AssertExpectations(t)
}

func TestRateLimiter_HourlyBreachReportsHourlyRetry(t *testing.T) {
	ml := new(mockLedger)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	ml.On("CountCompleted", mock.Anything, userID, now.Add(-time.Hour)).Return(20, nil)

	limiter := NewRateLimiter(ml, testFraudConfig())
	limiter.now = func() time.Time { return now }
	result, err := limiter.Check(context.Background(), userID)

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 3600, result.RetryAfter)
	assert.Contains(t, result.Reason, "hourly completion limit")
	// The daily count is never queried once the hourly ceiling is hit
	ml.AssertNumberOfCalls(t, "CountCompleted", 1)
}

func TestRateLimiter_DailyBreach(t *testing.T) {
	ml := new(mockLedger)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	ml.On("CountCompleted", mock.Anything, userID, now.Add(-time.Hour)).Return(5, nil)
	ml.On("CountCompleted", mock.Anything, userID, now.Add(-24*time.Hour)).Return(100, nil)

	limiter := NewRateLimiter(ml, testFraudConfig())
	limiter.now = func() time.Time { return now }
	result, err := limiter.Check(context.Background(), userID)

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 86400, result.RetryAfter)
	assert.Contains(t, result.Reason, "daily completion limit")
}

func TestRateLimiter_UnderBothCeilings(t *testing.T) {
	ml := new(mockLedger)
	userID := uuid.New()
	ml.On("CountCompleted", mock.Anything, userID, mock.Anything).Return(5, nil)

	result, err := NewRateLimiter(ml, testFraudConfig()).Check(context.Background(), userID)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Zero(t, result.RetryAfter)
}

func TestCooldownChecker_FirstCompletionAllowed(t *testing.T) {
	ml := new(mockLedger)
	userID := uuid.New()
	ml.On("LastCompletedAt", mock.Anything, userID).Return(nil, nil)

	result, err := NewCooldownChecker(ml, testFraudConfig()).Check(context.Background(), userID)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCooldownChecker_RetryAfterRoundsUp(t *testing.T) {
	ml := new(mockLedger)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	last := now.Add(-10500 * time.Millisecond) // 19.5s of cooldown remain
	ml.On("LastCompletedAt", mock.Anything, userID).Return(&last, nil)

	checker := NewCooldownChecker(ml, testFraudConfig())
	checker.now = func() time.Time { return now }
	result, err := checker.Check(context.Background(), userID)

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 20, result.RetryAfter)
}

func TestCooldownChecker_ElapsedCooldownAllows(t *testing.T) {
	ml := new(mockLedger)
	userID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	last := now.Add(-31 * time.Second)
	ml.On("LastCompletedAt", mock.Anything, userID).Return(&last, nil)

	checker := NewCooldownChecker(ml, testFraudConfig())
	checker.now = func() time.Time { return now }
	result, err := checker.Check(context.Background(), userID)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCheckPolicies(t *testing.T) {
	cfg := testFraudConfig()
	ml := new(mockLedger)

	assert.Equal(t, FailClosed, NewDuplicateChecker(ml, cfg).Policy())
	assert.Equal(t, FailClosed, NewRateLimiter(ml, cfg).Policy())
	assert.Equal(t, FailClosed, NewCooldownChecker(ml, cfg).Policy())
	assert.Equal(t, FailOpen, NewBehaviorAnalyzer(ml, nil, cfg).Policy())
}
