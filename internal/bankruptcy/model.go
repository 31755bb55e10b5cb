package bankruptcy

import "time"

// Record is one append-only bankruptcy episode. Exactly one record exists
// per episode: creation is gated by the perspective's sticky wasBankrupt
// flag, and the episode is closed when a full settlement stamps ResolvedAt.
type Record struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	FriendID         int64      `json:"friend_id"`
	FriendshipID     int64      `json:"friendship_id"`
	DebtAtBankruptcy int        `json:"debt_at_bankruptcy"`
	DeclaredAt       time.Time  `json:"declared_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	RestoredAt       *time.Time `json:"restored_at,omitempty"`
}
