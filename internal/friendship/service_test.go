package friendship

import (
	"context"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	friendships map[int64]*Friendship
	nextID      int64

	// conflictsLeft makes the next N UpdatePerspective calls fail with
	// ErrConflict, simulating a racing writer.
	conflictsLeft int
	updateCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{friendships: make(map[int64]*Friendship), nextID: 1}
}

func (s *fakeStore) Create(_ context.Context, f *Friendship) error {
	f.ID = s.nextID
	f.Version = 1
	f.CreatedAt = testNow
	s.nextID++
	clone := *f
	s.friendships[f.ID] = &clone
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*Friendship, error) {
	f, ok := s.friendships[id]
	if !ok {
		return nil, nil
	}
	clone := *f
	return &clone, nil
}

func (s *fakeStore) ListByUserID(_ context.Context, userID int64) ([]*Friendship, error) {
	var out []*Friendship
	for _, f := range s.friendships {
		if f.User1ID == userID || f.User2ID == userID {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdatePerspective(_ context.Context, id, version int64, side Side, u PerspectiveUpdate) error {
	s.updateCalls++
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return ErrConflict
	}
	f, ok := s.friendships[id]
	if !ok || f.Version != version {
		return ErrConflict
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
	if u.BankruptAt != nil {
		at := *u.BankruptAt
		p.BankruptAt = &at
	}
	if u.LastBankruptcyEmail != nil {
		at := *u.LastBankruptcyEmail
		p.LastBankruptcyEmail = &at
	}
	if u.Stats != nil {
		p.CalculatedDebt = u.Stats.TotalDebt
		p.DaysMissed = u.Stats.DaysMissed
		p.IsBankrupt = u.Stats.IsBankrupt
		p.IsInWarningZone = u.Stats.IsInWarningZone
		p.DaysUntilBankrupt = u.Stats.DaysUntilBankrupt
	}
	if u.CalculatedAt != nil {
		at := *u.CalculatedAt
		p.CalculatedAt = &at
	}
	f.Version++
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.friendships[id]; !ok {
		return ErrFriendshipNotFound
	}
	delete(s.friendships, id)
	return nil
}

func newTestService(store *fakeStore) *Service {
	return NewServiceWithClock(store, func() time.Time { return testNow })
}

func TestCreateFriendship(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	f, err := svc.Create(context.Background(), 1, &CreateFriendshipRequest{OtherUserID: 2})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if f.User1.LimitDays != 7 || f.User2.LimitDays != 7 {
		t.Errorf("limit not defaulted: %d / %d", f.User1.LimitDays, f.User2.LimitDays)
	}
	if !f.User1.LastInteraction.Equal(testNow) {
		t.Errorf("lastInteraction not initialized to now: %v", f.User1.LastInteraction)
	}
}

func TestCreateFriendshipValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, &CreateFriendshipRequest{OtherUserID: 1}); err != ErrSameUser {
		t.Errorf("self-friendship: got %v, want ErrSameUser", err)
	}

	badLimit := 0
	if _, err := svc.Create(ctx, 1, &CreateFriendshipRequest{OtherUserID: 2, LimitDays: &badLimit}); err != ErrInvalidLimit {
		t.Errorf("zero limit: got %v, want ErrInvalidLimit", err)
	}

	future := testNow.Add(time.Hour)
	if _, err := svc.Create(ctx, 1, &CreateFriendshipRequest{OtherUserID: 2, LastInteraction: &future}); err != ErrFutureTimestamp {
		t.Errorf("future seed: got %v, want ErrFutureTimestamp", err)
	}
}

func TestGetForUserPermission(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	f, _ := svc.Create(ctx, 1, &CreateFriendshipRequest{OtherUserID: 2})

	if _, _, err := svc.GetForUser(ctx, f.ID, 3); err != ErrNotParticipant {
		t.Errorf("outsider: got %v, want ErrNotParticipant", err)
	}
	if _, _, err := svc.GetForUser(ctx, 999, 1); err != ErrFriendshipNotFound {
		t.Errorf("missing: got %v, want ErrFriendshipNotFound", err)
	}

	_, side, err := svc.GetForUser(ctx, f.ID, 2)
	if err != nil || side != SideUser2 {
		t.Errorf("party lookup: side=%v err=%v", side, err)
	}
}

func TestRecalculateRefreshesCache(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	seed := testNow.Add(-10 * 24 * time.Hour)
	f, _ := svc.Create(ctx, 1, &CreateFriendshipRequest{OtherUserID: 2, LastInteraction: &seed})

	stats, err := svc.Recalculate(ctx, f.ID, 1)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	// 10 days missed, limit 7 -> 3 over.
	if stats.TotalDebt != 3 || stats.DaysMissed != 10 {
		t.Errorf("stats = %+v, want totalDebt 3 daysMissed 10", stats.Stats)
	}

	stored, _ := store.GetByID(ctx, f.ID)
	if stored.User1.CalculatedDebt != 3 {
		t.Errorf("cache not refreshed: %d", stored.User1.CalculatedDebt)
	}
	if stored.User2.CalculatedDebt != 0 || stored.User2.CalculatedAt != nil {
		t.Error("sibling perspective was touched by a side-scoped refresh")
	}
}

func TestRecalculateRetriesConflictOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	f, _ := svc.Create(ctx, 1, &CreateFriendshipRequest{OtherUserID: 2})

	store.conflictsLeft = 1
	if _, err := svc.Recalculate(ctx, f.ID, 1); err != nil {
		t.Fatalf("single conflict should be retried transparently: %v", err)
	}

	store.conflictsLeft = 2
	if _, err := svc.Recalculate(ctx, f.ID, 1); err != ErrConflict {
		t.Errorf("persistent conflict: got %v, want ErrConflict", err)
	}
}
