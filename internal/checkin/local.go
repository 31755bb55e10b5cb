package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/hakoware/api/internal/friendship"
)

// Store is the persistence port the local strategy needs. *Repository
// implements it against Postgres; tests implement it in memory.
type Store interface {
	GetFriendship(ctx context.Context, id int64) (*friendship.Friendship, error)
	LastCheckin(ctx context.Context, friendshipID, userID int64) (*Record, error)
	ApplyCheckin(ctx context.Context, f *friendship.Friendship, side friendship.Side, rec *Record, newStreak int) error
}

// LocalStrategy is the optimistic read-modify-write check-in path. Unlike
// the transactional path it reconstructs streak continuity from the
// check-in log using calendar days, which is also what makes it usable for
// batch backfills. A version conflict is retried once transparently.
type LocalStrategy struct {
	store Store
}

// NewLocalStrategy creates the fallback check-in strategy.
func NewLocalStrategy(store Store) *LocalStrategy {
	return &LocalStrategy{store: store}
}

// Name identifies the strategy in logs.
func (s *LocalStrategy) Name() string { return "local" }

// Do performs the check-in with optimistic concurrency.
func (s *LocalStrategy) Do(ctx context.Context, friendshipID, userID int64, proof *string, now time.Time) (*Result, error) {
	for attempt := 0; ; attempt++ {
		result, err := s.try(ctx, friendshipID, userID, proof, now)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, friendship.ErrConflict) || attempt >= 1 {
			return nil, err
		}
	}
}

func (s *LocalStrategy) try(ctx context.Context, friendshipID, userID int64, proof *string, now time.Time) (*Result, error) {
	f, err := s.store.GetFriendship(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, friendship.ErrFriendshipNotFound
	}

	side, ok := f.SideOf(userID)
	if !ok {
		return nil, friendship.ErrNotParticipant
	}

	p := f.Perspective(side)
	if remaining := cooldownRemaining(p.LastInteraction, now); remaining > 0 {
		return nil, &CooldownError{Remaining: remaining}
	}

	debtBefore := p.Calculate(now).TotalDebt

	last, err := s.store.LastCheckin(ctx, friendshipID, userID)
	if err != nil {
		return nil, err
	}
	var lastAt time.Time
	if last != nil {
		lastAt = last.CheckedInAt
	}
	newStreak := nextStreak(f.Streak, lastAt, last != nil, now)

	rec := &Record{
		FriendshipID:    friendshipID,
		UserID:          userID,
		CheckedInAt:     now,
		Proof:           proof,
		DebtBefore:      debtBefore,
		StreakAtCheckin: newStreak,
	}
	if err := s.store.ApplyCheckin(ctx, f, side, rec, newStreak); err != nil {
		return nil, err
	}

	return &Result{DebtCleared: debtBefore, Streak: newStreak, Record: rec}, nil
}
