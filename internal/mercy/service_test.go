package mercy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/internal/notification"
	"github.com/hakoware/api/internal/settlement"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	requests map[int64]*Request
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: make(map[int64]*Request), nextID: 1}
}

func (s *fakeStore) Create(ctx context.Context, friendshipID, requesterID int64, message string) (*Request, error) {
	req := &Request{
		ID:           s.nextID,
		FriendshipID: friendshipID,
		RequesterID:  requesterID,
		Message:      message,
		Status:       StatusPending,
		CreatedAt:    testNow,
	}
	s.nextID++
	s.requests[req.ID] = req
	return req, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (s *fakeStore) HasOpen(ctx context.Context, friendshipID, requesterID int64) (bool, error) {
	for _, req := range s.requests {
		if req.FriendshipID == friendshipID && req.RequesterID == requesterID && req.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListForUser(ctx context.Context, userID int64) ([]*Request, error) {
	var out []*Request
	for _, req := range s.requests {
		out = append(out, req)
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id int64, from, to Status, condition *string, resolvedAt *time.Time) error {
	req, ok := s.requests[id]
	if !ok || req.Status != from {
		return ErrInvalidState
	}
	req.Status = to
	if condition != nil {
		req.Condition = condition
	}
	req.ResolvedAt = resolvedAt
	return nil
}

type fakeFriendships struct {
	friendships map[int64]*friendship.Friendship
}

func (s *fakeFriendships) GetByID(ctx context.Context, id int64) (*friendship.Friendship, error) {
	f, ok := s.friendships[id]
	if !ok {
		return nil, nil
	}
	return f, nil
}

type fakeSettler struct {
	calls    []int64 // target user IDs
	attempts int
	err      error
}

func (s *fakeSettler) SettleFull(ctx context.Context, friendshipID, actorID, targetID int64) (*settlement.Outcome, error) {
	s.attempts++
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, targetID)
	return &settlement.Outcome{Action: settlement.ActionFull, FriendshipID: friendshipID, UserID: targetID}, nil
}

type fakeNotifier struct {
	events []notification.Event
}

func (n *fakeNotifier) Notify(ctx context.Context, e notification.Event) {
	n.events = append(n.events, e)
}

// testFriendship returns a friendship where user1 is bankrupt (base 12,
// limit 5, 8 days over: 20 >= 10) and user2 is current.
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

type fixture struct {
	svc      *Service
	store    *fakeStore
	settler  *fakeSettler
	notifier *fakeNotifier
}

func newFixture() *fixture {
	store := newFakeStore()
	settler := &fakeSettler{}
	notifier := &fakeNotifier{}
	friendships := &fakeFriendships{friendships: map[int64]*friendship.Friendship{1: testFriendship()}}
	svc := NewServiceWithClock(store, friendships, settler, notifier, func() time.Time { return testNow })
	return &fixture{svc: svc, store: store, settler: settler, notifier: notifier}
}

func TestCreateRequiresBankruptRequester(t *testing.T) {
	fx := newFixture()

	req, err := fx.svc.Create(context.Background(), 1, 10, "have mercy")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("Status = %s, want PENDING", req.Status)
	}
	if len(fx.notifier.events) != 1 || fx.notifier.events[0].Kind != notification.KindMercyRequested {
		t.Errorf("events = %+v, want one MERCY_REQUESTED", fx.notifier.events)
	}
	if fx.notifier.events[0].RecipientID != 20 {
		t.Errorf("recipient = %d, want counterparty 20", fx.notifier.events[0].RecipientID)
	}

	// The solvent party cannot petition.
	if _, err := fx.svc.Create(context.Background(), 1, 20, "me too"); !errors.Is(err, ErrNotBankrupt) {
		t.Errorf("solvent requester: error = %v, want ErrNotBankrupt", err)
	}
	if _, err := fx.svc.Create(context.Background(), 1, 77, "hi"); !errors.Is(err, friendship.ErrNotParticipant) {
		t.Errorf("outsider: error = %v, want ErrNotParticipant", err)
	}
	if _, err := fx.svc.Create(context.Background(), 9, 10, "hi"); !errors.Is(err, friendship.ErrFriendshipNotFound) {
		t.Errorf("missing friendship: error = %v, want ErrFriendshipNotFound", err)
	}
}

func TestCreateRejectsSecondOpenRequest(t *testing.T) {
	fx := newFixture()

	if _, err := fx.svc.Create(context.Background(), 1, 10, "first"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := fx.svc.Create(context.Background(), 1, 10, "second"); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("error = %v, want ErrAlreadyOpen", err)
	}
}

func TestGrantForgivesDebt(t *testing.T) {
	fx := newFixture()
	req, _ := fx.svc.Create(context.Background(), 1, 10, "have mercy")

	resolved, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusGranted, nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if resolved.Status != StatusGranted {
		t.Errorf("Status = %s, want GRANTED", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("granted request should be stamped resolved")
	}
	if len(fx.settler.calls) != 1 || fx.settler.calls[0] != 10 {
		t.Errorf("settler calls = %v, want full settlement of requester 10", fx.settler.calls)
	}

	last := fx.notifier.events[len(fx.notifier.events)-1]
	if last.Kind != notification.KindMercyResolved || last.RecipientID != 10 {
		t.Errorf("last event = %+v, want MERCY_RESOLVED to requester", last)
	}
}

func TestGrantKeepsRequestOpenWhenSettlementFails(t *testing.T) {
	fx := newFixture()
	req, _ := fx.svc.Create(context.Background(), 1, 10, "have mercy")

	// The settlement keeps conflicting past its retry.
	fx.settler.err = friendship.ErrConflict
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusGranted, nil); !errors.Is(err, friendship.ErrConflict) {
		t.Fatalf("Respond() error = %v, want ErrConflict", err)
	}
	if fx.settler.attempts != 1 {
		t.Errorf("settler attempts = %d, want 1", fx.settler.attempts)
	}

	// The petition must still be open, not stranded in GRANTED with the
	// debt unforgiven.
	stored, _ := fx.store.GetByID(context.Background(), req.ID)
	if stored.Status != StatusPending {
		t.Fatalf("stored status = %s, want PENDING", stored.Status)
	}
	if stored.ResolvedAt != nil {
		t.Error("failed grant must not stamp the request resolved")
	}

	// Once the fault clears, the same response goes through.
	fx.settler.err = nil
	resolved, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusGranted, nil)
	if err != nil {
		t.Fatalf("retried Respond() error = %v", err)
	}
	if resolved.Status != StatusGranted {
		t.Errorf("Status = %s, want GRANTED", resolved.Status)
	}
	if len(fx.settler.calls) != 1 || fx.settler.calls[0] != 10 {
		t.Errorf("settler calls = %v, want one full settlement of requester 10", fx.settler.calls)
	}
}

func TestDeclineLeavesDebtAlone(t *testing.T) {
	fx := newFixture()
	req, _ := fx.svc.Create(context.Background(), 1, 10, "have mercy")

	resolved, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusDeclined, nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if resolved.Status != StatusDeclined {
		t.Errorf("Status = %s, want DECLINED", resolved.Status)
	}
	if len(fx.settler.calls) != 0 {
		t.Error("declining must not settle anything")
	}
}

func TestCounterFlow(t *testing.T) {
	fx := newFixture()
	req, _ := fx.svc.Create(context.Background(), 1, 10, "have mercy")

	condition := "bring snacks to the next three hangouts"
	countered, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusCountered, &condition)
	if err != nil {
		t.Fatalf("Respond(countered) error = %v", err)
	}
	if countered.Status != StatusCountered {
		t.Errorf("Status = %s, want COUNTERED", countered.Status)
	}
	if countered.Condition == nil || *countered.Condition != condition {
		t.Errorf("Condition = %v, want %q", countered.Condition, condition)
	}
	if countered.ResolvedAt != nil {
		t.Error("countered request is still open")
	}
	if len(fx.settler.calls) != 0 {
		t.Error("countering must leave debt unchanged")
	}

	// A counter cannot be countered again.
	again := "also do my laundry"
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusCountered, &again); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double counter: error = %v, want ErrInvalidState", err)
	}

	// But it can still be granted.
	resolved, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusGranted, nil)
	if err != nil {
		t.Fatalf("Respond(granted after counter) error = %v", err)
	}
	if resolved.Status != StatusGranted {
		t.Errorf("Status = %s, want GRANTED", resolved.Status)
	}
	if len(fx.settler.calls) != 1 {
		t.Error("granting after a counter should settle in full")
	}
}

func TestRespondValidation(t *testing.T) {
	fx := newFixture()
	req, _ := fx.svc.Create(context.Background(), 1, 10, "have mercy")

	if _, err := fx.svc.Respond(context.Background(), 99, 20, StatusGranted, nil); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("missing request: error = %v, want ErrRequestNotFound", err)
	}
	// The requester cannot respond to their own petition.
	if _, err := fx.svc.Respond(context.Background(), req.ID, 10, StatusGranted, nil); !errors.Is(err, ErrNotCounterparty) {
		t.Errorf("self-response: error = %v, want ErrNotCounterparty", err)
	}
	if _, err := fx.svc.Respond(context.Background(), req.ID, 77, StatusGranted, nil); !errors.Is(err, ErrNotCounterparty) {
		t.Errorf("outsider: error = %v, want ErrNotCounterparty", err)
	}
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusCountered, nil); !errors.Is(err, ErrMissingCondition) {
		t.Errorf("counter without condition: error = %v, want ErrMissingCondition", err)
	}
	empty := "   "
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusCountered, &empty); !errors.Is(err, ErrMissingCondition) {
		t.Errorf("blank condition: error = %v, want ErrMissingCondition", err)
	}
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusPending, nil); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("bogus response: error = %v, want ErrInvalidResponse", err)
	}

	// Resolve, then verify terminal states reject further responses.
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusDeclined, nil); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := fx.svc.Respond(context.Background(), req.ID, 20, StatusGranted, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("response on resolved request: error = %v, want ErrInvalidState", err)
	}
}
