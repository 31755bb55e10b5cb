package mercy

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles mercy request data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new mercy repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pending mercy request.
func (r *Repository) Create(ctx context.Context, friendshipID, requesterID int64, message string) (*Request, error) {
	req := &Request{
		FriendshipID: friendshipID,
		RequesterID:  requesterID,
		Message:      message,
		Status:       StatusPending,
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO mercy_requests (friendship_id, requester_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, friendshipID, requesterID, message, StatusPending).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mercy request: %w", err)
	}

	return req, nil
}

// GetByID retrieves a mercy request with the requester's display name.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Request, error) {
	req := &Request{}
	err := r.db.QueryRowContext(ctx, `
		SELECT m.id, m.friendship_id, m.requester_id, m.message, m.status, m.condition, m.created_at, m.resolved_at, u.username
		FROM mercy_requests m
		JOIN users u ON m.requester_id = u.id
		WHERE m.id = $1
	`, id).Scan(&req.ID, &req.FriendshipID, &req.RequesterID, &req.Message,
		&req.Status, &req.Condition, &req.CreatedAt, &req.ResolvedAt, &req.RequesterName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mercy request: %w", err)
	}

	return req, nil
}

// HasOpen reports whether the requester already has an unresolved petition
// on the friendship.
func (r *Repository) HasOpen(ctx context.Context, friendshipID, requesterID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM mercy_requests
			WHERE friendship_id = $1 AND requester_id = $2 AND status IN ($3, $4)
		)
	`, friendshipID, requesterID, StatusPending, StatusCountered).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open mercy requests: %w", err)
	}
	return exists, nil
}

// ListForUser returns requests the user is involved in on either side,
// newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]*Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.friendship_id, m.requester_id, m.message, m.status, m.condition, m.created_at, m.resolved_at, u.username
		FROM mercy_requests m
		JOIN friendships f ON m.friendship_id = f.id
		JOIN users u ON m.requester_id = u.id
		WHERE f.user1_id = $1 OR f.user2_id = $1
		ORDER BY m.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mercy requests: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		req := &Request{}
		err := rows.Scan(&req.ID, &req.FriendshipID, &req.RequesterID, &req.Message,
			&req.Status, &req.Condition, &req.CreatedAt, &req.ResolvedAt, &req.RequesterName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mercy request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// UpdateStatus moves a request to a new state. The transition is guarded by
// the expected current status so two concurrent responders cannot both win.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status, condition *string, resolvedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE mercy_requests
		SET status = $1, condition = COALESCE($2, condition), resolved_at = $3
		WHERE id = $4 AND status = $5
	`, to, condition, resolvedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to update mercy request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update mercy request: %w", err)
	}
	if affected == 0 {
		return ErrInvalidState
	}
	return nil
}
