package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/offerwall/pkg/resilience"
)

// Resilient wraps the repository with a circuit breaker. When the ledger is
// unhealthy every query fails fast with resilience.ErrCircuitOpen, and the
// gate's per-check failure policy decides what that means for the event.
type Resilient struct {
	inner   *Repository
	breaker *resilience.CircuitBreaker
}

// NewResilient decorates a repository with the given breaker
func NewResilient(inner *Repository, breaker *resilience.CircuitBreaker) *Resilient {
	return &Resilient{inner: inner, breaker: breaker}
}

func (r *Resilient) FindByExternalID(ctx context.Context, externalID string) (*Record, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.FindByExternalID(ctx, externalID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Record), nil
}

func (r *Resilient) FindSimilar(ctx context.Context, userID uuid.UUID, providerID string, amount int64, since time.Time) (*Record, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.FindSimilar(ctx, userID, providerID, amount, since)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Record), nil
}

func (r *Resilient) CountCompleted(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.CountCompleted(ctx, userID, since)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (r *Resilient) LastCompletedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.LastCompletedAt(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*time.Time), nil
}

func (r *Resilient) RecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]Record, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.RecentCompleted(ctx, userID, since, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

func (r *Resilient) AggregateByUserAndProvider(ctx context.Context, start, end time.Time) ([]UserProviderCount, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.AggregateByUserAndProvider(ctx, start, end)
	})
	if err != nil {
		return nil, err
	}
	return result.([]UserProviderCount), nil
}

func (r *Resilient) CountByStatus(ctx context.Context, status Status, start, end time.Time) (int, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.CountByStatus(ctx, status, start, end)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (r *Resilient) AccountCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.inner.AccountCreatedAt(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*time.Time), nil
}
