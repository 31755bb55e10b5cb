package bankruptcy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hakoware/api/internal/friendship"
)

// Repository handles bankruptcy data persistence
type Repository struct {
	db          *sql.DB
	friendships *friendship.Repository
}

// NewRepository creates a new bankruptcy repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, friendships: friendship.NewRepository(db)}
}

// ListFriendships returns every friendship for the accrual scan.
func (r *Repository) ListFriendships(ctx context.Context) ([]*friendship.Friendship, error) {
	return r.friendships.ListAll(ctx)
}

// GetFriendship reloads a single friendship, used for the conflict retry.
func (r *Repository) GetFriendship(ctx context.Context, id int64) (*friendship.Friendship, error) {
	return r.friendships.GetByID(ctx, id)
}

// StampBankruptcyEmail records when a recurring notice went out.
func (r *Repository) StampBankruptcyEmail(ctx context.Context, friendshipID int64, side friendship.Side, at time.Time) error {
	return r.friendships.StampBankruptcyEmail(ctx, friendshipID, side, sql.NullTime{Time: at, Valid: true})
}

// ApplyAccrual writes one accrual batch in a single transaction: refreshed
// cached stats for both sides, sticky flags and notice stamps for newly
// bankrupt sides, and one history record per new episode. Conditional on
// the version the detector read; zero rows means ErrConflict.
func (r *Repository) ApplyAccrual(ctx context.Context, u *AccrualUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin accrual tx: %w", err)
	}
	defer tx.Rollback()

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for _, side := range u.Sides {
		prefix := side.Side.Prefix()
		add(prefix+"_calculated_debt", side.Stats.TotalDebt)
		add(prefix+"_calculated_at", u.Now)
		add(prefix+"_days_missed", side.Stats.DaysMissed)
		add(prefix+"_is_bankrupt", side.Stats.IsBankrupt)
		add(prefix+"_is_in_warning_zone", side.Stats.IsInWarningZone)
		add(prefix+"_days_until_bankrupt", side.Stats.DaysUntilBankrupt)
		if side.NewlyBankrupt {
			// The declaration itself counts as the first notice.
			add(prefix+"_was_bankrupt", true)
			add(prefix+"_bankrupt_at", u.Now)
			add(prefix+"_last_bankruptcy_email", u.Now)
		}
	}

	args = append(args, u.FriendshipID, u.Version)
	query := fmt.Sprintf(
		`UPDATE friendships SET %s, version = version + 1 WHERE id = $%d AND version = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to apply accrual: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to apply accrual: %w", err)
	}
	if affected == 0 {
		return friendship.ErrConflict
	}

	for _, rec := range u.Records {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bankruptcy_history (user_id, friend_id, friendship_id, debt_at_bankruptcy, declared_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, rec.UserID, rec.FriendID, rec.FriendshipID, rec.DebtAtBankruptcy, rec.DeclaredAt).Scan(&rec.ID)
		if err != nil {
			return fmt.Errorf("failed to insert bankruptcy record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accrual: %w", err)
	}
	return nil
}

// ResolveOpen closes any open bankruptcy episode a user has on a
// friendship. Called when a full settlement clears the slate.
func (r *Repository) ResolveOpen(ctx context.Context, friendshipID, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bankruptcy_history
		SET resolved_at = $1, restored_at = $1
		WHERE friendship_id = $2 AND user_id = $3 AND resolved_at IS NULL
	`, at, friendshipID, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve bankruptcy: %w", err)
	}
	return nil
}

// ListByUserID returns a user's bankruptcy history, newest first.
func (r *Repository) ListByUserID(ctx context.Context, userID int64) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, friend_id, friendship_id, debt_at_bankruptcy, declared_at, resolved_at, restored_at
		FROM bankruptcy_history
		WHERE user_id = $1
		ORDER BY declared_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bankruptcies: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.FriendID, &rec.FriendshipID,
			&rec.DebtAtBankruptcy, &rec.DeclaredAt, &rec.ResolvedAt, &rec.RestoredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bankruptcy record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
