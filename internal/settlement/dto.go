package settlement

// SettleRequest represents the request to settle debt on a friendship.
// UserID selects whose perspective is settled; it defaults to the caller's
// own side. Amount is required for partial settlements only.
type SettleRequest struct {
	Action Action `json:"action" validate:"required" example:"partial"`
	Amount *int   `json:"amount,omitempty" example:"5"`
	UserID *int64 `json:"user_id,omitempty"`
}
