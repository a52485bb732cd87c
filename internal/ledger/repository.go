// Package ledger is the read-only query adapter over the durable reward
// transaction store.
//
// The ledger itself is an external collaborator with one invariant the gate
// depends on: it rejects a second write for the same external_transaction_id
// while a non-failed record exists (unique partial index). The gate's exact
// duplicate check is read-then-decide and therefore only an early-rejection
// optimization; that uniqueness constraint is the true guarantee against
// double-crediting under concurrent retried deliveries.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles read-only ledger queries
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new ledger query adapter
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindByExternalID returns the non-failed record carrying the given external
// transaction ID, or nil when none exists. Failed records are invisible here
// so providers can legitimately retry a failed credit.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*Record, error) {
	query := `
		SELECT id, external_transaction_id, user_id, provider_id, converted_amount,
		       user_earnings, COALESCE(offer_category, ''), status, created_at
		FROM reward_transactions
		WHERE external_transaction_id = $1
		  AND status != 'failed'
	`

	rec, err := r.scanOne(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

// FindSimilar returns a non-failed record for the same user, provider and
// amount created since the given time, or nil when none exists.
func (r *Repository) FindSimilar(ctx context.Context, userID uuid.UUID, providerID string, amount int64, since time.Time) (*Record, error) {
	query := `
		SELECT id, external_transaction_id, user_id, provider_id, converted_amount,
		       user_earnings, COALESCE(offer_category, ''), status, created_at
		FROM reward_transactions
		WHERE user_id = $1
		  AND provider_id = $2
		  AND converted_amount = $3
		  AND created_at >= $4
		  AND status != 'failed'
		ORDER BY created_at DESC
		LIMIT 1
	`

	rec, err := r.scanOne(r.db.QueryRow(ctx, query, userID, providerID, amount, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

// CountCompleted counts completed records for the user since the given time
func (r *Repository) CountCompleted(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reward_transactions
		WHERE user_id = $1
		  AND status = 'completed'
		  AND created_at >= $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// LastCompletedAt returns the creation time of the user's most recent
// completed record, or nil for users with no history.
func (r *Repository) LastCompletedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT created_at
		FROM reward_transactions
		WHERE user_id = $1
		  AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var at time.Time
	if err := r.db.QueryRow(ctx, query, userID).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &at, nil
}

// RecentCompleted returns the user's completed records since the given time,
// most recent first, capped at limit.
func (r *Repository) RecentCompleted(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]Record, error) {
	query := `
		SELECT id, external_transaction_id, user_id, provider_id, converted_amount,
		       user_earnings, COALESCE(offer_category, ''), status, created_at
		FROM reward_transactions
		WHERE user_id = $1
		  AND status = 'completed'
		  AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// AggregateByUserAndProvider returns completed-event counts grouped by user
// and provider within the given range.
func (r *Repository) AggregateByUserAndProvider(ctx context.Context, start, end time.Time) ([]UserProviderCount, error) {
	query := `
		SELECT user_id, provider_id, COUNT(*), COALESCE(SUM(converted_amount), 0)
		FROM reward_transactions
		WHERE status = 'completed'
		  AND created_at >= $1
		  AND created_at <= $2
		GROUP BY user_id, provider_id
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserProviderCount
	for rows.Next() {
		var row UserProviderCount
		if err := rows.Scan(&row.UserID, &row.ProviderID, &row.Count, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// CountByStatus counts records with the given status within the range
func (r *Repository) CountByStatus(ctx context.Context, status Status, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reward_transactions
		WHERE status = $1
		  AND created_at >= $2
		  AND created_at <= $3
	`

	var count int
	if err := r.db.QueryRow(ctx, query, status, start, end).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// AccountCreatedAt returns the user's registration time, or nil when the
// account is unknown. Used only for the account-age scoring term.
func (r *Repository) AccountCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	query := `SELECT created_at FROM users WHERE id = $1`

	var at time.Time
	if err := r.db.QueryRow(ctx, query, userID).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &at, nil
}

func (r *Repository) scanOne(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.ExternalTransactionID,
		&rec.UserID,
		&rec.ProviderID,
		&rec.ConvertedAmount,
		&rec.UserEarnings,
		&rec.OfferCategory,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}
