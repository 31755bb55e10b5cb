package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CooldownWindow is how long a party must wait between check-ins. It is
// deliberately shorter than 24h so that checking in a little earlier each
// day doesn't lock you out, while still preventing two same-day resets from
// one calendar day of contact.
const CooldownWindow = 20 * time.Hour

// Common errors
var (
	ErrAlreadyCheckedIn      = errors.New("already checked in today")
	ErrDependencyUnavailable = errors.New("check-in backend unavailable")
)

// CooldownError reports how long until the next check-in is allowed. It
// matches ErrAlreadyCheckedIn under errors.Is.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("already checked in, try again in %s", e.Remaining.Round(time.Minute))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}

// cooldownRemaining returns how much of the cooldown window is left, or 0
// if a check-in is allowed.
func cooldownRemaining(lastInteraction, now time.Time) time.Duration {
	if lastInteraction.IsZero() {
		return 0
	}
	remaining := CooldownWindow - now.Sub(lastInteraction)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Result is what a successful check-in reports back to the caller.
type Result struct {
	DebtCleared int     `json:"debt_cleared"`
	Streak      int     `json:"streak"`
	Record      *Record `json:"-"`
}

// Strategy performs a check-in end to end. Two implementations exist: the
// transactional server path and the optimistic local path the processor
// falls back to when the server path's backend is unavailable.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Do validates the cooldown, resets the caller's ledger, updates the
	// streak and appends a Record, atomically per friendship.
	Do(ctx context.Context, friendshipID, userID int64, proof *string, now time.Time) (*Result, error)
}

// nextStreak applies calendar-day continuity: a prior check-in yesterday
// extends the streak, anything older restarts it, none at all starts at 1.
// A prior check-in earlier today (possible because the cooldown window is
// under 24h) leaves the streak as it is. The comparison is on normalized
// calendar days, not elapsed hours; that is what continuity means here.
func nextStreak(current int, lastCheckin time.Time, hasPrior bool, now time.Time) int {
	if !hasPrior {
		return 1
	}

	lastDay := midnight(lastCheckin)
	yesterday := midnight(now).AddDate(0, 0, -1)

	switch {
	case lastDay.Equal(yesterday):
		return current + 1
	case lastDay.Before(yesterday):
		return 1
	default:
		return current
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
