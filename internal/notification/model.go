package notification

import "time"

// Kind classifies what a notification is about. Debt accounting operations
// pick the kind; the sink only stores and lists.
type Kind string

const (
	KindBankruptcyDeclared Kind = "BANKRUPTCY_DECLARED"
	KindBankruptcyNotice   Kind = "BANKRUPTCY_NOTICE"
	KindDebtReset          Kind = "DEBT_RESET"
	KindSettledFull        Kind = "SETTLED_FULL"
	KindSettledPartial     Kind = "SETTLED_PARTIAL"
	KindMercyRequested     Kind = "MERCY_REQUESTED"
	KindMercyResolved      Kind = "MERCY_RESOLVED"
)

// Notification represents a stored notification in the system
type Notification struct {
	ID                int64     `json:"id"`
	RecipientID       int64     `json:"recipient_id"`
	FromUserID        *int64    `json:"from_user_id,omitempty"`
	Kind              Kind      `json:"kind"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"` // e.g. "FRIENDSHIP", "MERCY_REQUEST", "BANKRUPTCY"
	RelatedEntityID   *int64    `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Event is what debt operations hand to the sink. Delivery is best-effort:
// a failed notification must never fail the accounting write that caused it.
type Event struct {
	Kind          Kind
	RecipientID   int64
	FromUserID    int64
	Name          string // display name of the party the event is about
	DebtBefore    int
	AmountApplied int
	Message       string // optional override; derived from Kind when empty
	EntityType    string
	EntityID      int64
}
