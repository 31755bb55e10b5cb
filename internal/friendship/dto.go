package friendship

import (
	"time"

	"github.com/hakoware/api/internal/debt"
)

// CreateFriendshipRequest represents the request body for creating a friendship
type CreateFriendshipRequest struct {
	OtherUserID int64 `json:"other_user_id" validate:"required"`
	// LimitDays sets the grace period for both sides; defaults to 7.
	LimitDays *int `json:"limit_days,omitempty" validate:"omitempty,min=1"`
	// LastInteraction backdates both ledgers (e.g. "we last spoke in May").
	// Must not be in the future.
	LastInteraction *time.Time `json:"last_interaction,omitempty"`
}

// PerspectiveResponse is one side's ledger as seen by a party.
type PerspectiveResponse struct {
	UserID            int64      `json:"user_id"`
	Name              string     `json:"name"`
	BaseDebt          int        `json:"base_debt"`
	LimitDays         int        `json:"limit_days"`
	LastInteraction   string     `json:"last_interaction"`
	WasBankrupt       bool       `json:"was_bankrupt"`
	CalculatedDebt    int        `json:"calculated_debt"`
	CalculatedAt      *time.Time `json:"calculated_at,omitempty"`
	DaysMissed        int        `json:"days_missed"`
	IsBankrupt        bool       `json:"is_bankrupt"`
	IsInWarningZone   bool       `json:"is_in_warning_zone"`
	DaysUntilBankrupt int        `json:"days_until_bankrupt"`
}

// FriendshipResponse represents the response for a friendship
type FriendshipResponse struct {
	ID            int64               `json:"id"`
	Streak        int                 `json:"streak"`
	TotalCheckins int                 `json:"total_checkins"`
	LongestStreak int                 `json:"longest_streak"`
	CreatedAt     string              `json:"created_at"`
	Mine          PerspectiveResponse `json:"mine"`
	Theirs        PerspectiveResponse `json:"theirs"`
}

// DebtStatsResponse is the on-demand recalculation result, with the derived
// score and rank the client preview shows.
type DebtStatsResponse struct {
	debt.Stats
	CreditScore  int       `json:"credit_score"`
	Rank         debt.Rank `json:"rank"`
	CalculatedAt string    `json:"calculated_at"`
}

func newDebtStatsResponse(stats debt.Stats, at time.Time) *DebtStatsResponse {
	return &DebtStatsResponse{
		Stats:        stats,
		CreditScore:  debt.CreditScore(stats.TotalDebt, stats.DaysMissed),
		Rank:         debt.RankFor(stats.TotalDebt),
		CalculatedAt: at.UTC().Format(time.RFC3339),
	}
}

func perspectiveResponse(f *Friendship, side Side) PerspectiveResponse {
	p := f.Perspective(side)
	return PerspectiveResponse{
		UserID:            f.UserID(side),
		Name:              f.Name(side),
		BaseDebt:          p.BaseDebt,
		LimitDays:         p.LimitDays,
		LastInteraction:   p.LastInteraction.UTC().Format(time.RFC3339),
		WasBankrupt:       p.WasBankrupt,
		CalculatedDebt:    p.CalculatedDebt,
		CalculatedAt:      p.CalculatedAt,
		DaysMissed:        p.DaysMissed,
		IsBankrupt:        p.IsBankrupt,
		IsInWarningZone:   p.IsInWarningZone,
		DaysUntilBankrupt: p.DaysUntilBankrupt,
	}
}

// ToResponse converts a Friendship to a FriendshipResponse from the point
// of view of the caller's side.
func (f *Friendship) ToResponse(mine Side) *FriendshipResponse {
	return &FriendshipResponse{
		ID:            f.ID,
		Streak:        f.Streak,
		TotalCheckins: f.TotalCheckins,
		LongestStreak: f.LongestStreak,
		CreatedAt:     f.CreatedAt.UTC().Format(time.RFC3339),
		Mine:          perspectiveResponse(f, mine),
		Theirs:        perspectiveResponse(f, mine.Other()),
	}
}
