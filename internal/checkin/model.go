package checkin

import "time"

// Record is an append-only log entry for one successful check-in. Records
// are what the local strategy reconstructs streaks from.
type Record struct {
	ID              int64     `json:"id"`
	FriendshipID    int64     `json:"friendship_id"`
	UserID          int64     `json:"user_id"`
	CheckedInAt     time.Time `json:"checked_in_at"`
	Proof           *string   `json:"proof,omitempty"`
	DebtBefore      int       `json:"debt_before"`
	StreakAtCheckin int       `json:"streak_at_checkin"`
}

// Stats aggregates a user's check-ins across all friendships.
type Stats struct {
	TotalCheckins int `json:"total_checkins"`
	ThisWeek      int `json:"this_week"`
	ThisMonth     int `json:"this_month"`
}
