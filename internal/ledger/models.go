package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a reward transaction
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is a reward transaction as stored in the durable ledger. The fraud
// gate only ever reads these; the crediting path owns all writes.
type Record struct {
	ID                    uuid.UUID `json:"id"`
	ExternalTransactionID string    `json:"external_transaction_id"`
	UserID                uuid.UUID `json:"user_id"`
	ProviderID            string    `json:"provider_id"`
	ConvertedAmount       int64     `json:"converted_amount"` // minor units
	UserEarnings          int64     `json:"user_earnings"`    // minor units
	OfferCategory         string    `json:"offer_category,omitempty"`
	Status                Status    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

// UserProviderCount is one row of the per-user per-provider aggregate
type UserProviderCount struct {
	UserID     uuid.UUID `json:"user_id"`
	ProviderID string    `json:"provider_id"`
	Count      int       `json:"count"`
	Total      int64     `json:"total_amount"` // minor units
}
