package friendship

import (
	"time"

	"github.com/hakoware/api/internal/debt"
)

// Side names one of the two perspectives of a friendship. Every mutation is
// scoped to exactly one side; writes to one side must never touch the
// sibling's fields.
type Side int

const (
	SideUser1 Side = 1
	SideUser2 Side = 2
)

// Prefix returns the column prefix for this side.
func (s Side) Prefix() string {
	if s == SideUser1 {
		return "user1"
	}
	return "user2"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideUser1 {
		return SideUser2
	}
	return SideUser1
}

// Perspective is one party's debt ledger within a friendship.
//
// BaseDebt, LimitDays, LastInteraction and WasBankrupt are authoritative
// state. The Calculated* fields are a denormalized cache of the last
// calculator run, rewritten at will by whichever path evaluated last; they
// are never trusted as input to a decision.
type Perspective struct {
	BaseDebt            int        `json:"base_debt"`
	LimitDays           int        `json:"limit_days"`
	LastInteraction     time.Time  `json:"last_interaction"`
	WasBankrupt         bool       `json:"was_bankrupt"`
	BankruptAt          *time.Time `json:"bankrupt_at,omitempty"`
	LastBankruptcyEmail *time.Time `json:"last_bankruptcy_email,omitempty"`

	CalculatedDebt    int        `json:"calculated_debt"`
	CalculatedAt      *time.Time `json:"calculated_at,omitempty"`
	DaysMissed        int        `json:"days_missed"`
	IsBankrupt        bool       `json:"is_bankrupt"`
	IsInWarningZone   bool       `json:"is_in_warning_zone"`
	DaysUntilBankrupt int        `json:"days_until_bankrupt"`
}

// Calculate runs the debt calculator against this perspective's
// authoritative fields.
func (p *Perspective) Calculate(now time.Time) debt.Stats {
	return debt.Calculate(p.BaseDebt, p.LimitDays, p.LastInteraction, now)
}

// Friendship is the two-party aggregate: one independent debt ledger per
// side plus a shared streak. Version implements optimistic concurrency;
// every write is conditional on it.
type Friendship struct {
	ID            int64     `json:"id"`
	User1ID       int64     `json:"user1_id"`
	User2ID       int64     `json:"user2_id"`
	Streak        int       `json:"streak"`
	TotalCheckins int       `json:"total_checkins"`
	LongestStreak int       `json:"longest_streak"`
	Version       int64     `json:"-"`
	CreatedAt     time.Time `json:"created_at"`

	User1 Perspective `json:"user1_perspective"`
	User2 Perspective `json:"user2_perspective"`

	// Populated via JOIN
	User1Name string `json:"user1_name,omitempty"`
	User2Name string `json:"user2_name,omitempty"`
}

// SideOf returns which side of the friendship the user is on.
func (f *Friendship) SideOf(userID int64) (Side, bool) {
	switch userID {
	case f.User1ID:
		return SideUser1, true
	case f.User2ID:
		return SideUser2, true
	}
	return 0, false
}

// Perspective returns the ledger for the given side.
func (f *Friendship) Perspective(s Side) *Perspective {
	if s == SideUser1 {
		return &f.User1
	}
	return &f.User2
}

// UserID returns the user on the given side.
func (f *Friendship) UserID(s Side) int64 {
	if s == SideUser1 {
		return f.User1ID
	}
	return f.User2ID
}

// Name returns the display name of the user on the given side.
func (f *Friendship) Name(s Side) string {
	if s == SideUser1 {
		return f.User1Name
	}
	return f.User2Name
}

// PerspectiveUpdate is a partial, side-scoped write. Nil fields are left
// untouched, which is what keeps one side's mutation from clobbering the
// sibling perspective or a concurrent cache refresh of unrelated columns.
type PerspectiveUpdate struct {
	BaseDebt            *int
	LastInteraction     *time.Time
	WasBankrupt         *bool
	BankruptAt          *time.Time
	LastBankruptcyEmail *time.Time

	// Stats refreshes the whole calculated cache in one go.
	Stats        *debt.Stats
	CalculatedAt *time.Time
}
