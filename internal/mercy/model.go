package mercy

import "time"

// Status tracks a mercy petition through its lifecycle. Pending may move to
// any of the other three; countered is a re-offer that must still resolve
// to granted or declined. Granted and declined are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusGranted   Status = "GRANTED"
	StatusDeclined  Status = "DECLINED"
	StatusCountered Status = "COUNTERED"
)

// Request is a bankrupt party's petition for forgiveness from the
// counterparty.
type Request struct {
	ID           int64      `json:"id"`
	FriendshipID int64      `json:"friendship_id"`
	RequesterID  int64      `json:"requester_id"`
	Message      string     `json:"message"`
	Status       Status     `json:"status"`
	Condition    *string    `json:"condition,omitempty"` // set only when countered
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`

	// Populated via JOIN
	RequesterName string `json:"requester_name,omitempty"`
}

// Open reports whether the request still awaits a response.
func (r *Request) Open() bool {
	return r.Status == StatusPending || r.Status == StatusCountered
}
