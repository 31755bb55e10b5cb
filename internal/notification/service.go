package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Notifier is the sink the debt engine writes to. Implementations must be
// fire-and-forget from the caller's point of view: failures are logged and
// swallowed, never returned.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Service handles notification business logic
type Service struct {
	repo *Repository
}

// NewService creates a new notification service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Notify stores a notification for the event's recipient. Persistence
// failures are logged at Warn; the triggering accounting write has already
// been committed and must not be reported as failed because of this.
func (s *Service) Notify(ctx context.Context, e Event) {
	message := e.Message
	if message == "" {
		message = defaultMessage(e)
	}

	var entityType *string
	var entityID *int64
	if e.EntityType != "" {
		entityType = &e.EntityType
		entityID = &e.EntityID
	}

	if _, err := s.repo.Create(ctx, e.RecipientID, e.FromUserID, e.Kind, message, entityType, entityID); err != nil {
		slog.Warn("notification dropped",
			"kind", e.Kind,
			"recipient_id", e.RecipientID,
			"error", err,
		)
	}
}

// defaultMessage renders the counterparty-facing text for an event kind.
func defaultMessage(e Event) string {
	switch e.Kind {
	case KindBankruptcyDeclared:
		return fmt.Sprintf("%s has declared bankruptcy!", e.Name)
	case KindBankruptcyNotice:
		return fmt.Sprintf("%s is still bankrupt with %d APR outstanding", e.Name, e.DebtBefore)
	case KindDebtReset:
		return fmt.Sprintf("%s reset the timer and locked in %d APR as principal", e.Name, e.DebtBefore)
	case KindSettledFull:
		return fmt.Sprintf("%s paid off %d APR in full", e.Name, e.AmountApplied)
	case KindSettledPartial:
		return fmt.Sprintf("%s paid %d of %d APR", e.Name, e.AmountApplied, e.DebtBefore)
	case KindMercyRequested:
		return fmt.Sprintf("%s is bankrupt and begs for mercy", e.Name)
	case KindMercyResolved:
		return fmt.Sprintf("%s responded to your mercy petition", e.Name)
	default:
		return fmt.Sprintf("Update from %s", e.Name)
	}
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, ErrNotificationNotFound
	}
	return notification, nil
}

// ListByRecipientID retrieves all notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil {
		return ErrNotificationNotFound
	}
	if notification.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}
