package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hakoware/api/internal/debt"
	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/internal/notification"
)

// Common errors
var (
	ErrInvalidAction  = errors.New("unknown settlement action")
	ErrInvalidAmount  = errors.New("settlement amount out of range")
	ErrMissingAmount  = errors.New("partial settlement requires an amount")
	ErrNotParticipant = friendship.ErrNotParticipant
)

// InvalidAmountError reports the valid range alongside the failure.
type InvalidAmountError struct {
	Max int
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("amount must be between 1 and %d", e.Max)
}

func (e *InvalidAmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

// Store is the slice of friendship persistence the settlement engine needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (*friendship.Friendship, error)
	UpdatePerspective(ctx context.Context, id, version int64, side friendship.Side, u friendship.PerspectiveUpdate) error
}

// BankruptcyResolver closes open bankruptcy episodes when a settlement
// clears the slate.
type BankruptcyResolver interface {
	ResolveOpen(ctx context.Context, friendshipID, userID int64, at time.Time) error
}

// Service applies settlement actions to a friendship perspective.
type Service struct {
	store        Store
	bankruptcies BankruptcyResolver
	notifier     notification.Notifier
	now          func() time.Time
}

// NewService creates a new settlement service
func NewService(store Store, bankruptcies BankruptcyResolver, notifier notification.Notifier) *Service {
	return NewServiceWithClock(store, bankruptcies, notifier, time.Now)
}

// NewServiceWithClock creates a settlement service with an injected clock.
func NewServiceWithClock(store Store, bankruptcies BankruptcyResolver, notifier notification.Notifier, now func() time.Time) *Service {
	return &Service{store: store, bankruptcies: bankruptcies, notifier: notifier, now: now}
}

// Settle applies one settlement action. The caller must be a party to the
// friendship; the target perspective defaults to the caller's own side.
// Write conflicts are retried once transparently.
func (s *Service) Settle(ctx context.Context, friendshipID, actorID int64, req *SettleRequest) (*Outcome, error) {
	switch req.Action {
	case ActionReset, ActionFull, ActionPartial:
	default:
		return nil, ErrInvalidAction
	}

	var outcome *Outcome
	var err error
	for attempt := 0; ; attempt++ {
		outcome, err = s.settleOnce(ctx, friendshipID, actorID, req)
		if errors.Is(err, friendship.ErrConflict) && attempt == 0 {
			continue
		}
		break
	}
	return outcome, err
}

func (s *Service) settleOnce(ctx context.Context, friendshipID, actorID int64, req *SettleRequest) (*Outcome, error) {
	f, err := s.store.GetByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, friendship.ErrFriendshipNotFound
	}
	if _, ok := f.SideOf(actorID); !ok {
		return nil, friendship.ErrNotParticipant
	}

	targetID := actorID
	if req.UserID != nil {
		targetID = *req.UserID
	}
	side, ok := f.SideOf(targetID)
	if !ok {
		return nil, friendship.ErrNotParticipant
	}

	now := s.now().UTC()
	p := f.Perspective(side)
	debtBefore := p.Calculate(now).TotalDebt

	var update friendship.PerspectiveUpdate
	outcome := &Outcome{
		Action:       req.Action,
		FriendshipID: f.ID,
		UserID:       targetID,
		DebtBefore:   debtBefore,
	}
	clearedBankruptcy := false
	var kind notification.Kind

	switch req.Action {
	case ActionReset:
		// Interest is baked into the principal; only the timer restarts.
		update.BaseDebt = &debtBefore
		update.LastInteraction = &now
		outcome.BaseDebtAfter = debtBefore
		outcome.Stats = debt.Calculate(debtBefore, p.LimitDays, now, now)
		kind = notification.KindDebtReset

	case ActionFull:
		zero := 0
		cleared := false
		update.BaseDebt = &zero
		update.WasBankrupt = &cleared
		clearedBankruptcy = p.WasBankrupt
		outcome.AmountApplied = debtBefore
		outcome.BaseDebtAfter = 0
		outcome.Stats = debt.Calculate(0, p.LimitDays, p.LastInteraction, now)
		kind = notification.KindSettledFull

	case ActionPartial:
		if req.Amount == nil {
			return nil, ErrMissingAmount
		}
		amount := *req.Amount
		if amount <= 0 || amount > debtBefore {
			return nil, &InvalidAmountError{Max: debtBefore}
		}
		remaining := debtBefore - amount
		update.BaseDebt = &remaining
		if remaining == 0 && p.WasBankrupt {
			cleared := false
			update.WasBankrupt = &cleared
			clearedBankruptcy = true
		}
		outcome.AmountApplied = amount
		outcome.BaseDebtAfter = remaining
		outcome.Stats = debt.Calculate(remaining, p.LimitDays, p.LastInteraction, now)
		kind = notification.KindSettledPartial
	}

	update.Stats = &outcome.Stats
	update.CalculatedAt = &now

	if err := s.store.UpdatePerspective(ctx, f.ID, f.Version, side, update); err != nil {
		return nil, err
	}

	if clearedBankruptcy {
		if err := s.bankruptcies.ResolveOpen(ctx, f.ID, targetID, now); err != nil {
			slog.Warn("failed to resolve bankruptcy record", "friendship_id", f.ID, "user_id", targetID, "error", err)
		}
	}

	s.notifier.Notify(ctx, notification.Event{
		Kind:          kind,
		RecipientID:   f.UserID(side.Other()),
		FromUserID:    targetID,
		Name:          f.Name(side),
		DebtBefore:    debtBefore,
		AmountApplied: outcome.AmountApplied,
		EntityType:    "FRIENDSHIP",
		EntityID:      f.ID,
	})

	return outcome, nil
}

// SettleFull clears a perspective's principal outright. Used by the mercy
// workflow when a petition is granted.
func (s *Service) SettleFull(ctx context.Context, friendshipID, actorID, targetID int64) (*Outcome, error) {
	return s.Settle(ctx, friendshipID, actorID, &SettleRequest{Action: ActionFull, UserID: &targetID})
}
