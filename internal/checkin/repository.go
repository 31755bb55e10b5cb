package checkin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hakoware/api/internal/debt"
	"github.com/hakoware/api/internal/friendship"
)

// Repository handles check-in persistence. It backs both strategies: the
// transactional path runs the whole check-in inside one row-locked
// transaction, the local path uses optimistic versioned writes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new check-in repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PerformAtomic runs the full check-in as one transaction: the friendship
// row is locked, the cooldown is checked against the locked state, and all
// writes commit together. Two concurrent check-ins cannot both pass the
// cooldown check.
func (r *Repository) PerformAtomic(ctx context.Context, friendshipID, userID int64, proof *string, now time.Time) (*Result, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	defer tx.Rollback()

	query := `
		SELECT user1_id, user2_id, streak, total_checkins, longest_streak,
			user1_base_debt, user1_limit_days, user1_last_interaction,
			user2_base_debt, user2_limit_days, user2_last_interaction
		FROM friendships
		WHERE id = $1
		FOR UPDATE
	`

	var (
		user1ID, user2ID             int64
		streak, totalCheckins        int
		longestStreak                int
		base1, limit1, base2, limit2 int
		last1, last2                 sql.NullTime
	)
	err = tx.QueryRowContext(ctx, query, friendshipID).Scan(
		&user1ID, &user2ID, &streak, &totalCheckins, &longestStreak,
		&base1, &limit1, &last1,
		&base2, &limit2, &last2,
	)
	if err == sql.ErrNoRows {
		return nil, friendship.ErrFriendshipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock friendship: %w", err)
	}

	var side friendship.Side
	baseDebt, limit := base1, limit1
	last := last1
	switch userID {
	case user1ID:
		side = friendship.SideUser1
	case user2ID:
		side = friendship.SideUser2
		baseDebt, limit, last = base2, limit2, last2
	default:
		return nil, friendship.ErrNotParticipant
	}

	var lastInteraction time.Time
	if last.Valid {
		lastInteraction = last.Time
	}
	if remaining := cooldownRemaining(lastInteraction, now); remaining > 0 {
		return nil, &CooldownError{Remaining: remaining}
	}

	debtBefore := debt.Calculate(baseDebt, limit, lastInteraction, now).TotalDebt

	newStreak := streak + 1
	newLongest := longestStreak
	if newStreak > newLongest {
		newLongest = newStreak
	}

	update := fmt.Sprintf(`
		UPDATE friendships
		SET %s,
			streak = $2,
			total_checkins = total_checkins + 1,
			longest_streak = $3,
			version = version + 1
		WHERE id = $4
	`, perspectiveResetSet(side))
	if _, err := tx.ExecContext(ctx, update, now, newStreak, newLongest, friendshipID); err != nil {
		return nil, fmt.Errorf("failed to apply check-in: %w", err)
	}

	rec := &Record{
		FriendshipID:    friendshipID,
		UserID:          userID,
		CheckedInAt:     now,
		Proof:           proof,
		DebtBefore:      debtBefore,
		StreakAtCheckin: newStreak,
	}
	if err := insertRecord(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check-in: %w", err)
	}

	return &Result{DebtCleared: debtBefore, Streak: newStreak, Record: rec}, nil
}

// ApplyCheckin is the optimistic variant used by the local strategy: the
// perspective reset, the streak write and the record append happen in one
// transaction conditional on the version read earlier.
func (r *Repository) ApplyCheckin(ctx context.Context, f *friendship.Friendship, side friendship.Side, rec *Record, newStreak int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	defer tx.Rollback()

	newLongest := f.LongestStreak
	if newStreak > newLongest {
		newLongest = newStreak
	}

	update := fmt.Sprintf(`
		UPDATE friendships
		SET %s,
			streak = $2,
			total_checkins = total_checkins + 1,
			longest_streak = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
	`, perspectiveResetSet(side))

	res, err := tx.ExecContext(ctx, update, rec.CheckedInAt, newStreak, newLongest, f.ID, f.Version)
	if err != nil {
		return fmt.Errorf("failed to apply check-in: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to apply check-in: %w", err)
	}
	if affected == 0 {
		return friendship.ErrConflict
	}

	if err := insertRecord(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check-in: %w", err)
	}
	return nil
}

// perspectiveResetSet builds the SET fragment that zeroes one side's debt
// and refreshes its whole cached snapshot. Every cached column must be
// written: a check-in leaves zero debt, so days-until-bankrupt goes back to
// the full 2x window.
func perspectiveResetSet(side friendship.Side) string {
	return fmt.Sprintf(`%[1]s_base_debt = 0,
			%[1]s_last_interaction = $1,
			%[1]s_calculated_debt = 0,
			%[1]s_calculated_at = $1,
			%[1]s_days_missed = 0,
			%[1]s_is_bankrupt = false,
			%[1]s_is_in_warning_zone = false,
			%[1]s_days_until_bankrupt = %[1]s_limit_days * 2`, side.Prefix())
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec *Record) error {
	query := `
		INSERT INTO checkins (friendship_id, user_id, checked_in_at, proof, debt_before, streak_at_checkin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := tx.QueryRowContext(ctx, query,
		rec.FriendshipID, rec.UserID, rec.CheckedInAt, rec.Proof, rec.DebtBefore, rec.StreakAtCheckin,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to append check-in record: %w", err)
	}
	return nil
}

// GetFriendship loads the aggregate for the local strategy.
func (r *Repository) GetFriendship(ctx context.Context, id int64) (*friendship.Friendship, error) {
	return friendship.NewRepository(r.db).GetByID(ctx, id)
}

// LastCheckin returns the most recent check-in for a user on a friendship,
// or nil if there is none.
func (r *Repository) LastCheckin(ctx context.Context, friendshipID, userID int64) (*Record, error) {
	query := `
		SELECT id, friendship_id, user_id, checked_in_at, proof, debt_before, streak_at_checkin
		FROM checkins
		WHERE friendship_id = $1 AND user_id = $2
		ORDER BY checked_in_at DESC
		LIMIT 1
	`

	rec := &Record{}
	err := r.db.QueryRowContext(ctx, query, friendshipID, userID).Scan(
		&rec.ID, &rec.FriendshipID, &rec.UserID, &rec.CheckedInAt, &rec.Proof, &rec.DebtBefore, &rec.StreakAtCheckin,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last check-in: %w", err)
	}
	return rec, nil
}

// ListByFriendship returns a friendship's check-in history, newest first.
func (r *Repository) ListByFriendship(ctx context.Context, friendshipID int64, limit int) ([]*Record, error) {
	query := `
		SELECT id, friendship_id, user_id, checked_in_at, proof, debt_before, streak_at_checkin
		FROM checkins
		WHERE friendship_id = $1
		ORDER BY checked_in_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, friendshipID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.FriendshipID, &rec.UserID, &rec.CheckedInAt, &rec.Proof, &rec.DebtBefore, &rec.StreakAtCheckin); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// StatsForUser aggregates a user's check-ins across all friendships.
func (r *Repository) StatsForUser(ctx context.Context, userID int64, now time.Time) (*Stats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE checked_in_at >= $2),
			COUNT(*) FILTER (WHERE checked_in_at >= $3)
		FROM checkins
		WHERE user_id = $1
	`

	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	stats := &Stats{}
	err := r.db.QueryRowContext(ctx, query, userID, weekAgo, monthAgo).Scan(
		&stats.TotalCheckins, &stats.ThisWeek, &stats.ThisMonth,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in stats: %w", err)
	}
	return stats, nil
}
