package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/internal/notification"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	friendships   map[int64]*friendship.Friendship
	conflictsLeft int
	updateCalls   int
}

func newFakeStore(fs ...*friendship.Friendship) *fakeStore {
	s := &fakeStore{friendships: make(map[int64]*friendship.Friendship)}
	for _, f := range fs {
		s.friendships[f.ID] = f
	}
	return s
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*friendship.Friendship, error) {
	f, ok := s.friendships[id]
	if !ok {
		return nil, nil
	}
	copied := *f
	return &copied, nil
}

func (s *fakeStore) UpdatePerspective(ctx context.Context, id, version int64, side friendship.Side, u friendship.PerspectiveUpdate) error {
	s.updateCalls++
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return friendship.ErrConflict
	}
	f, ok := s.friendships[id]
	if !ok || f.Version != version {
		return friendship.ErrConflict
	}
	p := f.Perspective(side)
	if u.BaseDebt != nil {
		p.BaseDebt = *u.BaseDebt
	}
	if u.LastInteraction != nil {
		p.LastInteraction = *u.LastInteraction
	}
	if u.WasBankrupt != nil {
		p.WasBankrupt = *u.WasBankrupt
	}
	if u.Stats != nil {
		p.CalculatedDebt = u.Stats.TotalDebt
		p.IsBankrupt = u.Stats.IsBankrupt
	}
	f.Version++
	return nil
}

type fakeResolver struct {
	resolved []int64 // user IDs
}

func (r *fakeResolver) ResolveOpen(ctx context.Context, friendshipID, userID int64, at time.Time) error {
	r.resolved = append(r.resolved, userID)
	return nil
}

type fakeNotifier struct {
	events []notification.Event
}

func (n *fakeNotifier) Notify(ctx context.Context, e notification.Event) {
	n.events = append(n.events, e)
}

// testFriendship returns a friendship where user1 owes 20 APR: base 12,
// limit 5, 13 days since contact (8 days over). Bankrupt (20 >= 10).
func testFriendship() *friendship.Friendship {
	return &friendship.Friendship{
		ID:      1,
		User1ID: 10,
		User2ID: 20,
		Version: 1,
		User1: friendship.Perspective{
			BaseDebt:        12,
			LimitDays:       5,
			LastInteraction: testNow.Add(-13 * 24 * time.Hour),
			WasBankrupt:     true,
		},
		User2: friendship.Perspective{
			LimitDays:       5,
			LastInteraction: testNow.Add(-time.Hour),
		},
		User1Name: "gon",
		User2Name: "killua",
	}
}

func newTestService(store *fakeStore) (*Service, *fakeResolver, *fakeNotifier) {
	resolver := &fakeResolver{}
	notifier := &fakeNotifier{}
	svc := NewServiceWithClock(store, resolver, notifier, func() time.Time { return testNow })
	return svc, resolver, notifier
}

func TestResetBakesInterestIntoPrincipal(t *testing.T) {
	store := newFakeStore(testFriendship())
	svc, resolver, notifier := newTestService(store)

	outcome, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionReset})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if outcome.DebtBefore != 20 {
		t.Errorf("DebtBefore = %d, want 20", outcome.DebtBefore)
	}
	if outcome.BaseDebtAfter != 20 {
		t.Errorf("BaseDebtAfter = %d, want 20 (interest locked in)", outcome.BaseDebtAfter)
	}
	if outcome.Stats.TotalDebt != 20 {
		t.Errorf("recomputed TotalDebt = %d, want 20", outcome.Stats.TotalDebt)
	}
	if outcome.Stats.DaysMissed != 0 {
		t.Errorf("DaysMissed = %d, want 0 after timer restart", outcome.Stats.DaysMissed)
	}

	p := store.friendships[1].User1
	if p.BaseDebt != 20 || !p.LastInteraction.Equal(testNow) {
		t.Errorf("perspective = {base %d, last %v}, want {20, now}", p.BaseDebt, p.LastInteraction)
	}
	if !p.WasBankrupt {
		t.Error("reset must not clear the bankruptcy flag")
	}
	if len(resolver.resolved) != 0 {
		t.Error("reset must not resolve bankruptcy records")
	}
	if len(notifier.events) != 1 || notifier.events[0].Kind != notification.KindDebtReset {
		t.Errorf("events = %+v, want one DEBT_RESET", notifier.events)
	}
	if notifier.events[0].RecipientID != 20 {
		t.Errorf("notification recipient = %d, want counterparty 20", notifier.events[0].RecipientID)
	}
}

func TestSettleFullClearsDebtAndBankruptcy(t *testing.T) {
	store := newFakeStore(testFriendship())
	svc, resolver, notifier := newTestService(store)

	outcome, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionFull})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if outcome.AmountApplied != 20 {
		t.Errorf("AmountApplied = %d, want 20", outcome.AmountApplied)
	}

	p := store.friendships[1].User1
	if p.BaseDebt != 0 {
		t.Errorf("BaseDebt = %d, want 0", p.BaseDebt)
	}
	if p.WasBankrupt {
		t.Error("full settlement must clear the bankruptcy flag")
	}
	if !p.LastInteraction.Equal(testNow.Add(-13 * 24 * time.Hour)) {
		t.Error("full settlement must not touch the interaction timer")
	}
	if len(resolver.resolved) != 1 || resolver.resolved[0] != 10 {
		t.Errorf("resolved = %v, want the debtor's open record closed", resolver.resolved)
	}
	if len(notifier.events) != 1 || notifier.events[0].Kind != notification.KindSettledFull {
		t.Errorf("events = %+v, want one SETTLED_FULL", notifier.events)
	}
}

func TestSettlePartial(t *testing.T) {
	t.Run("pays down part of the total", func(t *testing.T) {
		store := newFakeStore(testFriendship())
		svc, resolver, _ := newTestService(store)

		amount := 5
		outcome, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionPartial, Amount: &amount})
		if err != nil {
			t.Fatalf("Settle() error = %v", err)
		}

		if outcome.BaseDebtAfter != 15 {
			t.Errorf("BaseDebtAfter = %d, want 15", outcome.BaseDebtAfter)
		}
		if store.friendships[1].User1.BaseDebt != 15 {
			t.Errorf("stored BaseDebt = %d, want 15", store.friendships[1].User1.BaseDebt)
		}
		if !store.friendships[1].User1.WasBankrupt {
			t.Error("partial payment with a remainder must not clear the bankruptcy flag")
		}
		if len(resolver.resolved) != 0 {
			t.Error("partial payment with a remainder must not resolve records")
		}
	})

	t.Run("paying the exact total clears bankruptcy", func(t *testing.T) {
		store := newFakeStore(testFriendship())
		svc, resolver, _ := newTestService(store)

		amount := 20
		outcome, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionPartial, Amount: &amount})
		if err != nil {
			t.Fatalf("Settle() error = %v", err)
		}

		if outcome.BaseDebtAfter != 0 {
			t.Errorf("BaseDebtAfter = %d, want 0", outcome.BaseDebtAfter)
		}
		if store.friendships[1].User1.WasBankrupt {
			t.Error("paying to zero should clear the bankruptcy flag")
		}
		if len(resolver.resolved) != 1 {
			t.Error("paying to zero should resolve the open record")
		}
	})

	t.Run("overpaying fails and leaves state unchanged", func(t *testing.T) {
		store := newFakeStore(testFriendship())
		svc, _, notifier := newTestService(store)

		amount := 25
		_, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionPartial, Amount: &amount})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("error = %v, want ErrInvalidAmount", err)
		}
		var amountErr *InvalidAmountError
		if !errors.As(err, &amountErr) || amountErr.Max != 20 {
			t.Errorf("error should report the valid range, got %v", err)
		}
		if store.friendships[1].User1.BaseDebt != 12 {
			t.Error("failed settlement must not change state")
		}
		if store.updateCalls != 0 {
			t.Errorf("updateCalls = %d, want 0", store.updateCalls)
		}
		if len(notifier.events) != 0 {
			t.Error("failed settlement must not notify")
		}
	})

	t.Run("zero and negative amounts are rejected", func(t *testing.T) {
		store := newFakeStore(testFriendship())
		svc, _, _ := newTestService(store)

		for _, amount := range []int{0, -3} {
			a := amount
			_, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionPartial, Amount: &a})
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("amount %d: error = %v, want ErrInvalidAmount", amount, err)
			}
		}
	})

	t.Run("missing amount is rejected", func(t *testing.T) {
		store := newFakeStore(testFriendship())
		svc, _, _ := newTestService(store)

		_, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionPartial})
		if !errors.Is(err, ErrMissingAmount) {
			t.Errorf("error = %v, want ErrMissingAmount", err)
		}
	})
}

func TestSettleValidation(t *testing.T) {
	store := newFakeStore(testFriendship())
	svc, _, _ := newTestService(store)

	if _, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: "void"}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("unknown action: error = %v, want ErrInvalidAction", err)
	}
	if _, err := svc.Settle(context.Background(), 99, 10, &SettleRequest{Action: ActionFull}); !errors.Is(err, friendship.ErrFriendshipNotFound) {
		t.Errorf("missing friendship: error = %v, want ErrFriendshipNotFound", err)
	}
	if _, err := svc.Settle(context.Background(), 1, 77, &SettleRequest{Action: ActionFull}); !errors.Is(err, friendship.ErrNotParticipant) {
		t.Errorf("outsider: error = %v, want ErrNotParticipant", err)
	}

	outsider := int64(77)
	if _, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionFull, UserID: &outsider}); !errors.Is(err, friendship.ErrNotParticipant) {
		t.Errorf("outsider target: error = %v, want ErrNotParticipant", err)
	}
}

func TestSettleTargetsOtherSide(t *testing.T) {
	store := newFakeStore(testFriendship())
	svc, _, notifier := newTestService(store)

	// Creditor (user2) forgives the debtor (user1) in full.
	target := int64(10)
	outcome, err := svc.Settle(context.Background(), 1, 20, &SettleRequest{Action: ActionFull, UserID: &target})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if outcome.UserID != 10 {
		t.Errorf("outcome.UserID = %d, want target 10", outcome.UserID)
	}
	if store.friendships[1].User1.BaseDebt != 0 {
		t.Error("target perspective should be the one cleared")
	}
	if store.friendships[1].User2.BaseDebt != 0 || store.friendships[1].User2.WasBankrupt {
		t.Error("actor's own perspective must be untouched")
	}
	if notifier.events[0].RecipientID != 20 {
		t.Errorf("notification recipient = %d, want the target's counterparty", notifier.events[0].RecipientID)
	}
}

func TestSettleRetriesConflictOnce(t *testing.T) {
	store := newFakeStore(testFriendship())
	store.conflictsLeft = 1
	svc, _, _ := newTestService(store)

	if _, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionFull}); err != nil {
		t.Fatalf("Settle() error = %v, want retried success", err)
	}
	if store.updateCalls != 2 {
		t.Errorf("updateCalls = %d, want 2", store.updateCalls)
	}

	store.conflictsLeft = 5
	if _, err := svc.Settle(context.Background(), 1, 10, &SettleRequest{Action: ActionReset}); !errors.Is(err, friendship.ErrConflict) {
		t.Errorf("persistent conflict: error = %v, want ErrConflict", err)
	}
}
