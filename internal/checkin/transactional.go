package checkin

import (
	"context"
	"time"
)

// TransactionalStrategy is the primary check-in path: the whole operation
// runs inside one row-locked database transaction, so the cooldown
// check-then-write cannot race.
type TransactionalStrategy struct {
	repo *Repository
}

// NewTransactionalStrategy creates the primary check-in strategy.
func NewTransactionalStrategy(repo *Repository) *TransactionalStrategy {
	return &TransactionalStrategy{repo: repo}
}

// Name identifies the strategy in logs.
func (s *TransactionalStrategy) Name() string { return "transactional" }

// Do performs the check-in inside a single transaction.
func (s *TransactionalStrategy) Do(ctx context.Context, friendshipID, userID int64, proof *string, now time.Time) (*Result, error) {
	return s.repo.PerformAtomic(ctx, friendshipID, userID, proof, now)
}
