package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/offerwall/internal/ledger"
	"github.com/richxcame/offerwall/pkg/eventbus"
)

// LedgerReader is the read surface the gate needs from the reward ledger.
// Satisfied by ledger.Repository and ledger.Resilient.
type LedgerReader interface {
	FindByExternalID(ctx context.Context, externalTransactionID string) (*ledger.Record, error)
	FindSimilar(ctx context.Context, userID uuid.UUID, providerID string, amount int64, since time.Time) (*ledger.Record, error)
	CountCompleted(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	LastCompletedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	RecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]ledger.Record, error)
	AggregateByUserAndProvider(ctx context.Context, start, end time.Time) ([]ledger.UserProviderCount, error)
	CountByStatus(ctx context.Context, status ledger.Status, start, end time.Time) (int, error)
	AccountCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}

var (
	_ LedgerReader   = (*ledger.Repository)(nil)
	_ LedgerReader   = (*ledger.Resilient)(nil)
	_ EventPublisher = (*eventbus.Bus)(nil)
)

// FlagRepository manages the expiring per-user fraud flags
type FlagRepository interface {
	Flag(ctx context.Context, userID uuid.UUID, reason string) error
	IsFlagged(ctx context.Context, userID uuid.UUID) (bool, *FraudFlag, error)
	List(ctx context.Context) ([]FraudFlag, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// IPRepository records per-address activity and returns the advisory signal
type IPRepository interface {
	Track(ctx context.Context, addr string, userID uuid.UUID) (*IPAssessment, error)
}

// EventPublisher is the optional outbound event hook. A nil publisher
// disables publishing without branching at each call site.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}
