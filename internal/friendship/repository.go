package friendship

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// perspectiveColumns are the per-side columns, without the userN_ prefix.
const perspectiveColumns = `base_debt, limit_days, last_interaction, was_bankrupt, bankrupt_at, last_bankruptcy_email,
	calculated_debt, calculated_at, days_missed, is_bankrupt, is_in_warning_zone, days_until_bankrupt`

// Repository handles friendship data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new friendship repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func selectColumns() string {
	cols := []string{"f.id", "f.user1_id", "f.user2_id", "f.streak", "f.total_checkins", "f.longest_streak", "f.version", "f.created_at"}
	for _, prefix := range []string{"user1", "user2"} {
		for _, c := range strings.Split(perspectiveColumns, ",") {
			cols = append(cols, fmt.Sprintf("f.%s_%s", prefix, strings.TrimSpace(c)))
		}
	}
	cols = append(cols, "u1.username", "u2.username")
	return strings.Join(cols, ", ")
}

func scanFriendship(row interface{ Scan(...any) error }) (*Friendship, error) {
	f := &Friendship{}
	var last1, last2 sql.NullTime
	dest := []any{&f.ID, &f.User1ID, &f.User2ID, &f.Streak, &f.TotalCheckins, &f.LongestStreak, &f.Version, &f.CreatedAt}
	for i, p := range []*Perspective{&f.User1, &f.User2} {
		last := &last1
		if i == 1 {
			last = &last2
		}
		dest = append(dest,
			&p.BaseDebt, &p.LimitDays, last, &p.WasBankrupt, &p.BankruptAt, &p.LastBankruptcyEmail,
			&p.CalculatedDebt, &p.CalculatedAt, &p.DaysMissed, &p.IsBankrupt, &p.IsInWarningZone, &p.DaysUntilBankrupt,
		)
	}
	dest = append(dest, &f.User1Name, &f.User2Name)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if last1.Valid {
		f.User1.LastInteraction = last1.Time
	}
	if last2.Valid {
		f.User2.LastInteraction = last2.Time
	}
	return f, nil
}

// Create inserts a new friendship with both perspectives initialized.
func (r *Repository) Create(ctx context.Context, f *Friendship) error {
	query := `
		INSERT INTO friendships (
			user1_id, user2_id,
			user1_base_debt, user1_limit_days, user1_last_interaction,
			user2_base_debt, user2_limit_days, user2_last_interaction
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		f.User1ID, f.User2ID,
		f.User1.BaseDebt, f.User1.LimitDays, f.User1.LastInteraction,
		f.User2.BaseDebt, f.User2.LimitDays, f.User2.LastInteraction,
	).Scan(&f.ID, &f.Version, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	return nil
}

// GetByID retrieves a friendship with both perspectives and display names.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Friendship, error) {
	query := `
		SELECT ` + selectColumns() + `
		FROM friendships f
		JOIN users u1 ON f.user1_id = u1.id
		JOIN users u2 ON f.user2_id = u2.id
		WHERE f.id = $1
	`

	f, err := scanFriendship(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}

	return f, nil
}

// ListByUserID retrieves all friendships a user is a party to.
func (r *Repository) ListByUserID(ctx context.Context, userID int64) ([]*Friendship, error) {
	query := `
		SELECT ` + selectColumns() + `
		FROM friendships f
		JOIN users u1 ON f.user1_id = u1.id
		JOIN users u2 ON f.user2_id = u2.id
		WHERE f.user1_id = $1 OR f.user2_id = $1
		ORDER BY f.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer rows.Close()

	return collectFriendships(rows)
}

// ListAll retrieves every friendship. Used by the daily accrual scan.
func (r *Repository) ListAll(ctx context.Context) ([]*Friendship, error) {
	query := `
		SELECT ` + selectColumns() + `
		FROM friendships f
		JOIN users u1 ON f.user1_id = u1.id
		JOIN users u2 ON f.user2_id = u2.id
		ORDER BY f.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer rows.Close()

	return collectFriendships(rows)
}

func collectFriendships(rows *sql.Rows) ([]*Friendship, error) {
	var friendships []*Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}

// UpdatePerspective applies a side-scoped partial update, conditional on the
// version read earlier. Zero rows affected means another writer got there
// first (or the row is gone); both surface as ErrConflict so the caller can
// re-read and retry.
func (r *Repository) UpdatePerspective(ctx context.Context, id, version int64, side Side, u PerspectiveUpdate) error {
	sets, args := buildPerspectiveSets(side, u)
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, version)
	query := fmt.Sprintf(
		`UPDATE friendships SET %s, version = version + 1 WHERE id = $%d AND version = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update perspective: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update perspective: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// StampBankruptcyEmail records when a recurring bankruptcy notice went out.
// Single-column, side-scoped stamp; no version bump needed since it carries
// no accounting meaning.
func (r *Repository) StampBankruptcyEmail(ctx context.Context, id int64, side Side, at sql.NullTime) error {
	query := fmt.Sprintf(`UPDATE friendships SET %s_last_bankruptcy_email = $1 WHERE id = $2`, side.Prefix())
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to stamp bankruptcy email: %w", err)
	}
	return nil
}

// buildPerspectiveSets renders SET clauses for the non-nil fields of u,
// prefixed for the given side.
func buildPerspectiveSets(side Side, u PerspectiveUpdate) ([]string, []any) {
	prefix := side.Prefix()
	var sets []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s_%s = $%d", prefix, column, len(args)))
	}

	if u.BaseDebt != nil {
		add("base_debt", *u.BaseDebt)
	}
	if u.LastInteraction != nil {
		add("last_interaction", *u.LastInteraction)
	}
	if u.WasBankrupt != nil {
		add("was_bankrupt", *u.WasBankrupt)
	}
	if u.BankruptAt != nil {
		add("bankrupt_at", *u.BankruptAt)
	}
	if u.LastBankruptcyEmail != nil {
		add("last_bankruptcy_email", *u.LastBankruptcyEmail)
	}
	if u.Stats != nil {
		add("calculated_debt", u.Stats.TotalDebt)
		add("days_missed", u.Stats.DaysMissed)
		add("is_bankrupt", u.Stats.IsBankrupt)
		add("is_in_warning_zone", u.Stats.IsInWarningZone)
		add("days_until_bankrupt", u.Stats.DaysUntilBankrupt)
	}
	if u.CalculatedAt != nil {
		add("calculated_at", *u.CalculatedAt)
	}

	return sets, args
}

// Delete removes a friendship. Mercy requests referencing it are removed by
// the ON DELETE CASCADE on mercy_requests.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if affected == 0 {
		return ErrFriendshipNotFound
	}
	return nil
}
