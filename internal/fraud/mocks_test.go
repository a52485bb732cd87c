package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/richxcame/offerwall/internal/ledger"
	"github.com/richxcame/offerwall/pkg/config"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) FindByExternalID(ctx context.Context, externalTransactionID string) (*ledger.Record, error) {
	args := m.Called(ctx, externalTransactionID)
	if rec := args.Get(0); rec != nil {
		return rec.(*ledger.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) FindSimilar(ctx context.Context, userID uuid.UUID, providerID string, amount int64, since time.Time) (*ledger.Record, error) {
	args := m.Called(ctx, userID, providerID, amount, since)
	if rec := args.Get(0); rec != nil {
		return rec.(*ledger.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) CountCompleted(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) LastCompletedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if ts := args.Get(0); ts != nil {
		return ts.(*time.Time), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) RecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]ledger.Record, error) {
	args := m.Called(ctx, userID, since, limit)
	if recs := args.Get(0); recs != nil {
		return recs.([]ledger.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) AggregateByUserAndProvider(ctx context.Context, start, end time.Time) ([]ledger.UserProviderCount, error) {
	args := m.Called(ctx, start, end)
	if rows := args.Get(0); rows != nil {
		return rows.([]ledger.UserProviderCount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) CountByStatus(ctx context.Context, status ledger.Status, start, end time.Time) (int, error) {
	args := m.Called(ctx, status, start, end)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) AccountCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if ts := args.Get(0); ts != nil {
		return ts.(*time.Time), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockFlagRepository struct {
	mock.Mock
}

func (m *mockFlagRepository) Flag(ctx context.Context, userID uuid.UUID, reason string) error {
	args := m.Called(ctx, userID, reason)
	return args.Error(0)
}

func (m *mockFlagRepository) IsFlagged(ctx context.Context, userID uuid.UUID) (bool, *FraudFlag, error) {
	args := m.Called(ctx, userID)
	if flag := args.Get(1); flag != nil {
		return args.Bool(0), flag.(*FraudFlag), args.Error(2)
	}
	return args.Bool(0), nil, args.Error(2)
}

func (m *mockFlagRepository) List(ctx context.Context) ([]FraudFlag, error) {
	args := m.Called(ctx)
	if flags := args.Get(0); flags != nil {
		return flags.([]FraudFlag), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFlagRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockIPRepository struct {
	mock.Mock
}

func (m *mockIPRepository) Track(ctx context.Context, addr string, userID uuid.UUID) (*IPAssessment, error) {
	args := m.Called(ctx, addr, userID)
	if assessment := args.Get(0); assessment != nil {
		return assessment.(*IPAssessment), args.Error(1)
	}
	return nil, args.Error(1)
}

func testFraudConfig() config.FraudConfig {
	return config.FraudConfig{
		HourlyLimit:         20,
		DailyLimit:          100,
		CooldownSeconds:     30,
		NearDuplicateWindow: 60,
		BlockThreshold:      70,
		FlagThreshold:       40,
		FlagTTLHours:        168,
		IPWindowHours:       24,
		StoreTimeoutSeconds: 5,
	}
}

func validEvent() *CompletionEvent {
	return &CompletionEvent{
		ExternalTransactionID: "tx-1001",
		UserID:                uuid.New(),
		ProviderID:            "tapjoy",
		ConvertedAmount:       250,
		IPAddress:             "203.0.113.10",
		OccurredAt:            time.Now(),
	}
}
