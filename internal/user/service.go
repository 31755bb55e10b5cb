package user

import (
	"context"
	"errors"
	"time"

	"github.com/hakoware/api/internal/debt"
	"github.com/hakoware/api/internal/friendship"
)

// Common errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")
)

// FriendshipLister provides the friendships a user's standing is computed
// from.
type FriendshipLister interface {
	ListByUserID(ctx context.Context, userID int64) ([]*friendship.Friendship, error)
}

// Service handles user business logic
type Service struct {
	repo        *Repository
	friendships FriendshipLister
	now         func() time.Time
}

// NewService creates a new user service with dependencies injected
func NewService(repo *Repository, friendships FriendshipLister) *Service {
	return &Service{repo: repo, friendships: friendships, now: time.Now}
}

// Create creates a new user
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	// Check if email is already in use
	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	return s.repo.Create(ctx, req)
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List retrieves all users with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// Standing computes a user's credit standing across all friendships. Each
// perspective is evaluated fresh; the overall score is the worst of them,
// since one bankruptcy is enough to wreck a reputation.
func (s *Service) Standing(ctx context.Context, id int64) (*StandingResponse, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.standingFor(ctx, user)
}

func (s *Service) standingFor(ctx context.Context, user *User) (*StandingResponse, error) {
	friendships, err := s.friendships.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	standing := &StandingResponse{
		UserID:      user.ID,
		Username:    user.DisplayName(),
		CreditScore: debt.MaxCreditScore,
		Rank:        debt.RankFor(0),
		EvaluatedAt: now,
	}

	for _, f := range friendships {
		side, ok := f.SideOf(user.ID)
		if !ok {
			continue
		}
		stats := f.Perspective(side).Calculate(now)
		score := debt.CreditScore(stats.TotalDebt, stats.DaysMissed)

		standing.Friendships++
		standing.TotalDebt += stats.TotalDebt
		if stats.IsBankrupt {
			standing.Bankruptcies++
		}
		if score < standing.CreditScore {
			standing.CreditScore = score
		}
	}
	standing.Rank = debt.RankFor(standing.TotalDebt)

	return standing, nil
}

// Update modifies an existing user
func (s *Service) Update(ctx context.Context, id int64, req *UpdateUserRequest) (*User, error) {
	// Check if user exists
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}

	return s.repo.Update(ctx, id, req)
}

// Delete removes a user
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
