// Package quota tracks per-user AI call allowances.
//
// Every parse request consumes one allowance unit regardless of how many
// provider calls it makes. A denied check means no downstream provider call
// may be made for that request.
package quota

import "context"

// Allowance is the result of a quota check.
type Allowance struct {
	Allowed          bool   `json:"allowed"`
	DailyRemaining   int    `json:"daily_remaining"`
	MonthlyRemaining int    `json:"monthly_remaining"`
	Reason           string `json:"reason,omitempty"`
}

// Guard approves or denies AI calls for a user.
type Guard interface {
	// CheckAllowed reports whether the user may make another AI call,
	// along with their remaining daily and monthly allowance.
	CheckAllowed(ctx context.Context, userID string) (Allowance, error)

	// IncrementUsage records one AI call for the user.
	IncrementUsage(ctx context.Context, userID, schoolCode string) error
}
