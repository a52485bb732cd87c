package fraud

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/offerwall/internal/ledger"
	"github.com/richxcame/offerwall/pkg/logger"
	"github.com/richxcame/offerwall/pkg/metrics"
)

// suspiciousActivityThreshold marks users whose completion count in one
// report window warrants a manual look even without a flag.
const suspiciousActivityThreshold = 50

const topUserCount = 10

// UserActivity summarizes one user's completions inside a report window
type UserActivity struct {
	UserID      uuid.UUID `json:"user_id"`
	Completions int       `json:"completions"`
	TotalAmount int64     `json:"total_amount"`
	Providers   int       `json:"providers"`
}

// Report is a periodic activity summary for operators. It is derived
// entirely from the ledger and the flag store at generation time.
type Report struct {
	Start             time.Time      `json:"start"`
	End               time.Time      `json:"end"`
	TotalCompletions  int            `json:"total_completions"`
	TotalFailures     int            `json:"total_failures"`
	TopUsers          []UserActivity `json:"top_users"`
	SuspiciousUsers   []UserActivity `json:"suspicious_users"`
	ProviderBreakdown map[string]int `json:"provider_breakdown"`
	FlaggedUsers      []FraudFlag    `json:"flagged_users"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// Reporter builds activity reports over arbitrary windows
type Reporter struct {
	ledger LedgerReader
	flags  FlagRepository
	now    func() time.Time
}

func NewReporter(l LedgerReader, flags FlagRepository) *Reporter {
	return &Reporter{ledger: l, flags: flags, now: time.Now}
}

// Generate builds the report for [start, end). A failing flag store degrades
// the report rather than aborting it; the ledger aggregates are required.
func (r *Reporter) Generate(ctx context.Context, start, end time.Time) (*Report, error) {
	rows, err := r.ledger.AggregateByUserAndProvider(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("report generation: aggregate: %w", err)
	}

	failures, err := r.ledger.CountByStatus(ctx, ledger.StatusFailed, start, end)
	if err != nil {
		return nil, fmt.Errorf("report generation: failure count: %w", err)
	}

	report := &Report{
		Start:             start,
		End:               end,
		TotalFailures:     failures,
		ProviderBreakdown: make(map[string]int),
		GeneratedAt:       r.now(),
	}

	perUser := make(map[uuid.UUID]*UserActivity)
	for _, row := range rows {
		report.TotalCompletions += row.Count
		report.ProviderBreakdown[row.ProviderID] += row.Count

		activity, ok := perUser[row.UserID]
		if !ok {
			activity = &UserActivity{UserID: row.UserID}
			perUser[row.UserID] = activity
		}
		activity.Completions += row.Count
		activity.TotalAmount += row.Total
		activity.Providers++
	}

	users := make([]UserActivity, 0, len(perUser))
	for _, activity := range perUser {
		users = append(users, *activity)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Completions != users[j].Completions {
			return users[i].Completions > users[j].Completions
		}
		return users[i].UserID.String() < users[j].UserID.String()
	})

	for _, activity := range users {
		if activity.Completions > suspiciousActivityThreshold {
			report.SuspiciousUsers = append(report.SuspiciousUsers, activity)
		}
	}
	if len(users) > topUserCount {
		users = users[:topUserCount]
	}
	report.TopUsers = users

	flags, err := r.flags.List(ctx)
	if err != nil {
		logger.WarnContext(ctx, "flag store unavailable, report omits flagged users", zap.Error(err))
	} else {
		report.FlaggedUsers = flags
		metrics.FlaggedUsers.Set(float64(len(flags)))
	}

	return report, nil
}
