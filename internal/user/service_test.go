package user

import (
	"context"
	"testing"
	"time"

	"github.com/hakoware/api/internal/debt"
	"github.com/hakoware/api/internal/friendship"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeLister struct {
	friendships []*friendship.Friendship
}

func (l *fakeLister) ListByUserID(ctx context.Context, userID int64) ([]*friendship.Friendship, error) {
	return l.friendships, nil
}

func TestStandingAggregatesWorstScore(t *testing.T) {
	// User 10 is clean with friend 20 (checked in an hour ago) and bankrupt
	// with friend 30 (limit 5, 16 days missed, debt 11).
	lister := &fakeLister{friendships: []*friendship.Friendship{
		{
			ID: 1, User1ID: 10, User2ID: 20, Version: 1,
			User1: friendship.Perspective{LimitDays: 7, LastInteraction: testNow.Add(-time.Hour)},
			User2: friendship.Perspective{LimitDays: 7, LastInteraction: testNow.Add(-time.Hour)},
		},
		{
			ID: 2, User1ID: 30, User2ID: 10, Version: 1,
			User1: friendship.Perspective{LimitDays: 5, LastInteraction: testNow.Add(-time.Hour)},
			User2: friendship.Perspective{LimitDays: 5, LastInteraction: testNow.Add(-16 * 24 * time.Hour)},
		},
	}}

	svc := &Service{friendships: lister, now: func() time.Time { return testNow }}
	standing, err := svc.standingFor(context.Background(), &User{ID: 10, Username: "gon"})
	if err != nil {
		t.Fatalf("standingFor() error = %v", err)
	}

	if standing.Friendships != 2 {
		t.Errorf("Friendships = %d, want 2", standing.Friendships)
	}
	if standing.TotalDebt != 11 {
		t.Errorf("TotalDebt = %d, want 11", standing.TotalDebt)
	}
	if standing.Bankruptcies != 1 {
		t.Errorf("Bankruptcies = %d, want 1", standing.Bankruptcies)
	}
	// Worst side: 16 days missed, 11 debt -> 850 - 160 - 22 = 668.
	if standing.CreditScore != 668 {
		t.Errorf("CreditScore = %d, want 668", standing.CreditScore)
	}
	if standing.Rank != debt.RankNenUser {
		t.Errorf("Rank = %s, want NEN USER for total debt 11", standing.Rank)
	}
}

func TestStandingWithNoFriendships(t *testing.T) {
	svc := &Service{friendships: &fakeLister{}, now: func() time.Time { return testNow }}
	standing, err := svc.standingFor(context.Background(), &User{ID: 10, Username: "gon"})
	if err != nil {
		t.Fatalf("standingFor() error = %v", err)
	}

	if standing.CreditScore != debt.MaxCreditScore {
		t.Errorf("CreditScore = %d, want %d", standing.CreditScore, debt.MaxCreditScore)
	}
	if standing.Rank != debt.RankCleanRecord {
		t.Errorf("Rank = %s, want CLEAN RECORD", standing.Rank)
	}
}
