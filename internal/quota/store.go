package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/klasroom/taskintake/internal/db"
)

// Store is a Guard backed by the ai_usage table. Counters roll over at
// midnight in the given location so that "daily" matches the school day,
// not the server's wall clock.
type Store struct {
	db           *db.DB
	loc          *time.Location
	dailyLimit   int
	monthlyLimit int
}

// NewStore creates a Store with the given limits. A limit of zero disables
// that dimension of the check.
func NewStore(database *db.DB, loc *time.Location, dailyLimit, monthlyLimit int) *Store {
	return &Store{
		db:           database,
		loc:          loc,
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
	}
}

func (s *Store) CheckAllowed(ctx context.Context, userID string) (Allowance, error) {
	now := time.Now().In(s.loc)
	day := now.Format("2006-01-02")
	month := now.Format("2006-01")

	var dailyUsed int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(count), 0) FROM ai_usage WHERE user_id = ? AND day = ?",
		userID, day,
	).Scan(&dailyUsed)
	if err != nil {
		return Allowance{}, fmt.Errorf("querying daily usage: %w", err)
	}

	var monthlyUsed int
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(count), 0) FROM ai_usage WHERE user_id = ? AND day LIKE ?",
		userID, month+"%",
	).Scan(&monthlyUsed)
	if err != nil {
		return Allowance{}, fmt.Errorf("querying monthly usage: %w", err)
	}

	a := Allowance{
		Allowed:          true,
		DailyRemaining:   remaining(s.dailyLimit, dailyUsed),
		MonthlyRemaining: remaining(s.monthlyLimit, monthlyUsed),
	}

	if s.dailyLimit > 0 && dailyUsed >= s.dailyLimit {
		a.Allowed = false
		a.Reason = "daily AI call limit reached"
	} else if s.monthlyLimit > 0 && monthlyUsed >= s.monthlyLimit {
		a.Allowed = false
		a.Reason = "monthly AI call limit reached"
	}

	return a, nil
}

func (s *Store) IncrementUsage(ctx context.Context, userID, schoolCode string) error {
	day := time.Now().In(s.loc).Format("2006-01-02")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_usage (user_id, school_code, day, count) VALUES (?, ?, ?, 1)
		ON CONFLICT(user_id, day) DO UPDATE SET count = count + 1`,
		userID, schoolCode, day,
	)
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	return nil
}

func remaining(limit, used int) int {
	if limit <= 0 {
		return -1 // unlimited
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
