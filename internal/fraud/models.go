package fraud

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Action is the gate's verdict for one completion event
type Action string

const (
	// ActionAllow lets the crediting path proceed
	ActionAllow Action = "allow"
	// ActionFlag credits the user but marks the event for manual review
	ActionFlag Action = "flag"
	// ActionBlock rejects the event and persists a fraud flag
	ActionBlock Action = "block"
)

// FailurePolicy names what a check failure means for the decision. It is an
// explicit property of each check so tests can assert the policy directly.
type FailurePolicy string

const (
	// FailClosed escalates the decision when the check cannot run. Used for
	// the duplicate, rate-limit and cooldown checks: a missed duplicate is a
	// double payment.
	FailClosed FailurePolicy = "fail_closed"
	// FailOpen degrades gracefully with a logged warning. Used for the
	// behavioral analyzer and the IP tracker: losing them only affects
	// sensitivity, not correctness.
	FailOpen FailurePolicy = "fail_open"
)

// CompletionEvent is an inbound reward-completion callback from a provider.
// Immutable once received; never persisted by the gate itself.
type CompletionEvent struct {
	ExternalTransactionID string    `json:"external_transaction_id" validate:"required,max=255"`
	UserID                uuid.UUID `json:"user_id" validate:"required"`
	ProviderID            string    `json:"provider_id" validate:"required,max=100"`
	ConvertedAmount       int64     `json:"converted_amount" validate:"required,gt=0"` // minor units
	IPAddress             string    `json:"ip_address" validate:"required,ip"`
	OccurredAt            time.Time `json:"occurred_at"`
}

var validate = validator.New()

// Validate rejects malformed events before they reach scoring
func (e *CompletionEvent) Validate() error {
	return validate.Struct(e)
}

// RiskDecision is the gate's output for one event, produced once and
// consumed immediately by the caller.
type RiskDecision struct {
	RiskScore    int       `json:"risk_score"` // clamped to [0,100]
	Action       Action    `json:"action"`
	Reasons      []string  `json:"reasons"`
	RetryAfter   int       `json:"retry_after,omitempty"` // seconds, never negative
	IsFraudulent bool      `json:"is_fraudulent"`
	CheckedAt    time.Time `json:"checked_at"`
}

// DuplicateResult is the outcome of the exact and near-duplicate checks
type DuplicateResult struct {
	Duplicate bool   `json:"duplicate"`
	Reason    string `json:"reason,omitempty"`
}

// RateLimitResult is the outcome of the hourly/daily ceiling checks
type RateLimitResult struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds
}

// CooldownResult is the outcome of the inter-completion spacing check
type CooldownResult struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds
}

// ActivitySnapshot holds per-user aggregates over the trailing day window.
// Ephemeral: recomputed from the ledger per request, optionally cached for a
// short TTL because it is the most expensive check.
type ActivitySnapshot struct {
	UserID               uuid.UUID `json:"user_id"`
	CompletionsLastHour  int       `json:"completions_last_hour"`
	CompletionsLast24h   int       `json:"completions_last_24h"`
	AvgCompletionSeconds float64   `json:"avg_completion_seconds"` // zero with fewer than two records
	UniqueProviders      int       `json:"unique_providers"`
	Patterns             []string  `json:"patterns,omitempty"`
	ComputedAt           time.Time `json:"computed_at"`
}

// FraudFlag is the persisted, expiring record of a blocked user. At most one
// live flag exists per user; a new block overwrites reason and timestamp and
// resets the expiry.
type FraudFlag struct {
	UserID    uuid.UUID `json:"user_id"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// IPActivityRecord tracks completion activity per originating address across
// users. Count never decreases within the window; Users is a set.
type IPActivityRecord struct {
	IPAddress string    `json:"ip_address"`
	Users     []string  `json:"users"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"last_seen"`
}

// HasUser reports whether the user is already in the record's set
func (r *IPActivityRecord) HasUser(userID uuid.UUID) bool {
	id := userID.String()
	for _, u := range r.Users {
		if u == id {
			return true
		}
	}
	return false
}

// IPAssessment is the advisory signal produced after each IP update. It is
// surfaced separately and never folded into the numeric risk score.
type IPAssessment struct {
	IPAddress   string `json:"ip_address"`
	Suspicious  bool   `json:"suspicious"`
	Reason      string `json:"reason,omitempty"`
	UniqueUsers int    `json:"unique_users"`
	Count       int    `json:"count"`
}

// Pattern labels produced by the behavioral analyzer
const (
	PatternHighCompletionRate = "high completion rate"
	PatternFastCompletions    = "unusually fast completions"
	PatternSingleProvider     = "single-provider focus"
	PatternRoundAmounts       = "mostly round amounts (possible testing)"
)

// Score weights for the instantaneous risk score
const (
	scoreDuplicate = 100
	scoreRateLimit = 50
	scoreCooldown  = 30

	// Fail-closed escalation weights when a critical check cannot run.
	// Rate and cooldown failures land at or above the flag threshold so a
	// store outage never silently allows.
	scoreDuplicateUnavailable = 100
	scoreRateUnavailable      = 50
	scoreCooldownUnavailable  = 40
)
