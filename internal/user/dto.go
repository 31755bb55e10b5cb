package user

import (
	"time"

	"github.com/hakoware/api/internal/debt"
)

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Email     string  `json:"email" validate:"required,email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// StandingResponse represents a user's credit standing across all of their
// friendships, evaluated at request time.
type StandingResponse struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Friendships  int       `json:"friendships"`
	TotalDebt    int       `json:"total_debt"`
	Bankruptcies int       `json:"bankruptcies"`
	CreditScore  int       `json:"credit_score"`
	Rank         debt.Rank `json:"rank"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
