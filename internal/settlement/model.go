package settlement

import "github.com/hakoware/api/internal/debt"

// Action selects how a settlement applies to the target's debt.
type Action string

const (
	// ActionReset locks the accrued interest in as new principal and
	// restarts the grace period. Nothing is forgiven.
	ActionReset Action = "reset"
	// ActionFull zeroes the principal and closes any open bankruptcy
	// episode. The interaction timer is left alone.
	ActionFull Action = "full"
	// ActionPartial pays down part of the current total.
	ActionPartial Action = "partial"
)

// Outcome describes what a settlement did to one perspective.
type Outcome struct {
	Action        Action     `json:"action"`
	FriendshipID  int64      `json:"friendship_id"`
	UserID        int64      `json:"user_id"`
	DebtBefore    int        `json:"debt_before"`
	AmountApplied int        `json:"amount_applied"`
	BaseDebtAfter int        `json:"base_debt_after"`
	Stats         debt.Stats `json:"stats"`
}
