package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// DecisionBlockedData is emitted when the gate blocks a completion event.
// Admin tooling consumes it to surface flagged accounts without polling.
type DecisionBlockedData struct {
	UserID                uuid.UUID `json:"user_id"`
	ExternalTransactionID string    `json:"external_transaction_id"`
	ProviderID            string    `json:"provider_id"`
	RiskScore             int       `json:"risk_score"`
	Reasons               []string  `json:"reasons"`
	BlockedAt             time.Time `json:"blocked_at"`
}

// IPSuspiciousData is emitted when the IP abuse tracker marks an address.
// Advisory only: it never feeds back into the numeric risk score.
type IPSuspiciousData struct {
	IPAddress   string    `json:"ip_address"`
	UniqueUsers int       `json:"unique_users"`
	Count       int       `json:"count"`
	Reason      string    `json:"reason"`
	DetectedAt  time.Time `json:"detected_at"`
}

// ReportGeneratedData is emitted when a scheduled fraud report completes.
type ReportGeneratedData struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	TotalCompletions int       `json:"total_completions"`
	TotalFailures    int       `json:"total_failures"`
	SuspiciousUsers  int       `json:"suspicious_users"`
	FlaggedUsers     int       `json:"flagged_users"`
}
