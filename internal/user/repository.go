package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = "id, username, email, avatar_url, created_at"

// Repository handles user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	query := `
		INSERT INTO users (username, email, avatar_url)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, req.Username, req.Email, req.AvatarURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by their ID. Returns nil when no row matches.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by their email. Returns nil when no row matches.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// List retrieves all users with pagination
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, total, rows.Err()
}

// Update modifies an existing user. Returns nil when no row matches.
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateUserRequest) (*User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
		    avatar_url = COALESCE($3, avatar_url)
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, req.Username, req.AvatarURL))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// Delete removes a user from the database. Friendships, check-ins and
// bankruptcy records referencing the user cascade away with it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
