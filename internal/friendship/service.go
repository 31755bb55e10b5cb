package friendship

import (
	"context"
	"errors"
	"time"

	"github.com/hakoware/api/internal/debt"
)

// Common errors
var (
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrNotParticipant     = errors.New("not a party to this friendship")
	ErrSameUser           = errors.New("cannot befriend yourself")
	ErrFutureTimestamp    = errors.New("last interaction cannot be in the future")
	ErrConflict           = errors.New("concurrent update, please retry")
)

// Store is the persistence port the service needs. *Repository implements
// it against Postgres; tests implement it in memory.
type Store interface {
	Create(ctx context.Context, f *Friendship) error
	GetByID(ctx context.Context, id int64) (*Friendship, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Friendship, error)
	UpdatePerspective(ctx context.Context, id, version int64, side Side, u PerspectiveUpdate) error
	Delete(ctx context.Context, id int64) error
}

// Service handles friendship business logic
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new friendship service
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// NewServiceWithClock creates a service with an injected clock for tests.
func NewServiceWithClock(store Store, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

// Create establishes a friendship between the caller and another user. Both
// ledgers start clean with lastInteraction = now unless a seed date is
// given. Future seeds are rejected here at the write path; the calculator's
// abs() would otherwise tolerate them silently.
func (s *Service) Create(ctx context.Context, callerID int64, req *CreateFriendshipRequest) (*Friendship, error) {
	if req.OtherUserID == callerID {
		return nil, ErrSameUser
	}

	now := s.now()
	limit := debt.DefaultLimitDays
	if req.LimitDays != nil {
		if *req.LimitDays <= 0 {
			return nil, ErrInvalidLimit
		}
		limit = *req.LimitDays
	}

	last := now
	if req.LastInteraction != nil {
		if req.LastInteraction.After(now) {
			return nil, ErrFutureTimestamp
		}
		last = *req.LastInteraction
	}

	f := &Friendship{
		User1ID: callerID,
		User2ID: req.OtherUserID,
		User1:   Perspective{LimitDays: limit, LastInteraction: last},
		User2:   Perspective{LimitDays: limit, LastInteraction: last},
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, err
	}

	return f, nil
}

// ErrInvalidLimit rejects non-positive grace periods at creation.
var ErrInvalidLimit = errors.New("limit must be a positive number of days")

// GetForUser retrieves a friendship if the caller is a party to it.
func (s *Service) GetForUser(ctx context.Context, id, userID int64) (*Friendship, Side, error) {
	f, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if f == nil {
		return nil, 0, ErrFriendshipNotFound
	}

	side, ok := f.SideOf(userID)
	if !ok {
		return nil, 0, ErrNotParticipant
	}

	return f, side, nil
}

// ListForUser retrieves all friendships the caller is a party to.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*Friendship, error) {
	return s.store.ListByUserID(ctx, userID)
}

// Recalculate runs the calculator against the caller's perspective and
// refreshes its cached stats. The returned stats are the same struct the
// daily job writes, so an on-demand refresh and the batch can never drift.
// A version conflict is retried once transparently before surfacing.
func (s *Service) Recalculate(ctx context.Context, id, userID int64) (*DebtStatsResponse, error) {
	now := s.now()

	for attempt := 0; ; attempt++ {
		f, side, err := s.GetForUser(ctx, id, userID)
		if err != nil {
			return nil, err
		}

		p := f.Perspective(side)
		stats := p.Calculate(now)

		err = s.store.UpdatePerspective(ctx, f.ID, f.Version, side, PerspectiveUpdate{
			Stats:        &stats,
			CalculatedAt: &now,
		})
		if err == nil {
			return newDebtStatsResponse(stats, now), nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= 1 {
			return nil, err
		}
	}
}

// Delete removes a friendship the caller is a party to.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	_, _, err := s.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
