package mercy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/internal/notification"
	"github.com/hakoware/api/internal/settlement"
)

// Common errors
var (
	ErrRequestNotFound  = errors.New("mercy request not found")
	ErrNotBankrupt      = errors.New("only a bankrupt party may request mercy")
	ErrNotCounterparty  = errors.New("only the counterparty may respond to this request")
	ErrInvalidState     = errors.New("request is not awaiting this response")
	ErrMissingCondition = errors.New("countering requires a condition")
	ErrAlreadyOpen      = errors.New("an open mercy request already exists")
	ErrInvalidResponse  = errors.New("unknown mercy response")
)

// Store is the persistence port for mercy requests.
type Store interface {
	Create(ctx context.Context, friendshipID, requesterID int64, message string) (*Request, error)
	GetByID(ctx context.Context, id int64) (*Request, error)
	HasOpen(ctx context.Context, friendshipID, requesterID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]*Request, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status, condition *string, resolvedAt *time.Time) error
}

// FriendshipStore loads the friendship a petition is about.
type FriendshipStore interface {
	GetByID(ctx context.Context, id int64) (*friendship.Friendship, error)
}

// Settler forgives the requester's debt when a petition is granted.
type Settler interface {
	SettleFull(ctx context.Context, friendshipID, actorID, targetID int64) (*settlement.Outcome, error)
}

// Service runs the mercy petition state machine.
type Service struct {
	store       Store
	friendships FriendshipStore
	settler     Settler
	notifier    notification.Notifier
	now         func() time.Time
}

// NewService creates a new mercy service
func NewService(store Store, friendships FriendshipStore, settler Settler, notifier notification.Notifier) *Service {
	return NewServiceWithClock(store, friendships, settler, notifier, time.Now)
}

// NewServiceWithClock creates a mercy service with an injected clock.
func NewServiceWithClock(store Store, friendships FriendshipStore, settler Settler, notifier notification.Notifier, now func() time.Time) *Service {
	return &Service{store: store, friendships: friendships, settler: settler, notifier: notifier, now: now}
}

// Create opens a petition. Only a party whose recomputed debt stats say
// bankrupt right now may petition; the cached flag is not trusted.
func (s *Service) Create(ctx context.Context, friendshipID, requesterID int64, message string) (*Request, error) {
	f, err := s.friendships.GetByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, friendship.ErrFriendshipNotFound
	}
	side, ok := f.SideOf(requesterID)
	if !ok {
		return nil, friendship.ErrNotParticipant
	}

	now := s.now().UTC()
	if !f.Perspective(side).Calculate(now).IsBankrupt {
		return nil, ErrNotBankrupt
	}

	open, err := s.store.HasOpen(ctx, friendshipID, requesterID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrAlreadyOpen
	}

	req, err := s.store.Create(ctx, friendshipID, requesterID, message)
	if err != nil {
		return nil, err
	}
	req.RequesterName = f.Name(side)

	s.notifier.Notify(ctx, notification.Event{
		Kind:        notification.KindMercyRequested,
		RecipientID: f.UserID(side.Other()),
		FromUserID:  requesterID,
		Name:        f.Name(side),
		Message:     message,
		EntityType:  "MERCY_REQUEST",
		EntityID:    req.ID,
	})

	return req, nil
}

// Respond resolves or counters a petition. Only the requester's
// counterparty may respond, for both the initial response and the response
// after a counter. A countered request may no longer be countered again.
func (s *Service) Respond(ctx context.Context, requestID, responderID int64, response Status, condition *string) (*Request, error) {
	switch response {
	case StatusGranted, StatusDeclined, StatusCountered:
	default:
		return nil, ErrInvalidResponse
	}

	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	f, err := s.friendships.GetByID(ctx, req.FriendshipID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, friendship.ErrFriendshipNotFound
	}
	requesterSide, ok := f.SideOf(req.RequesterID)
	if !ok {
		return nil, friendship.ErrNotParticipant
	}
	if responderID != f.UserID(requesterSide.Other()) {
		return nil, ErrNotCounterparty
	}

	if !req.Open() {
		return nil, ErrInvalidState
	}
	if response == StatusCountered {
		if req.Status == StatusCountered {
			// A counter cannot be countered; it must resolve.
			return nil, ErrInvalidState
		}
		if condition == nil || strings.TrimSpace(*condition) == "" {
			return nil, ErrMissingCondition
		}
	}

	now := s.now().UTC()
	var resolvedAt *time.Time
	if response == StatusGranted || response == StatusDeclined {
		resolvedAt = &now
	}

	// Forgive the debt before closing the petition. If the settlement
	// fails the request stays open and the response can be retried; a
	// repeated grant on already-forgiven debt settles zero, which is
	// harmless.
	if response == StatusGranted {
		if _, err := s.settler.SettleFull(ctx, req.FriendshipID, responderID, req.RequesterID); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateStatus(ctx, req.ID, req.Status, response, condition, resolvedAt); err != nil {
		return nil, err
	}

	req.Status = response
	if condition != nil {
		req.Condition = condition
	}
	req.ResolvedAt = resolvedAt

	s.notifier.Notify(ctx, notification.Event{
		Kind:        notification.KindMercyResolved,
		RecipientID: req.RequesterID,
		FromUserID:  responderID,
		Name:        f.Name(requesterSide.Other()),
		Message:     responseMessage(f.Name(requesterSide.Other()), response, condition),
		EntityType:  "MERCY_REQUEST",
		EntityID:    req.ID,
	})

	return req, nil
}

func responseMessage(name string, response Status, condition *string) string {
	switch response {
	case StatusGranted:
		return name + " granted you mercy, your debt is forgiven"
	case StatusDeclined:
		return name + " declined your mercy petition"
	case StatusCountered:
		return name + " countered: " + *condition
	}
	return ""
}

// GetByID retrieves a request the caller is involved in.
func (s *Service) GetByID(ctx context.Context, requestID, userID int64) (*Request, error) {
	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	f, err := s.friendships.GetByID(ctx, req.FriendshipID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, friendship.ErrFriendshipNotFound
	}
	if _, ok := f.SideOf(userID); !ok {
		return nil, friendship.ErrNotParticipant
	}

	return req, nil
}

// ListForUser returns all petitions on the caller's friendships.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*Request, error) {
	return s.store.ListForUser(ctx, userID)
}
