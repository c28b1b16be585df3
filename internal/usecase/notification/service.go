package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// NotificationService stores user notifications and serves the inbox
type NotificationService struct {
	Repo domain.NotificationRepository
	Log  zerolog.Logger
	Now  func() time.Time
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(repo domain.NotificationRepository, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		Repo: repo,
		Log:  log,
		Now:  time.Now,
	}
}

// Notify stores an unread notification for userID. planID may be nil.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, planID *uuid.UUID, kind, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    planID,
		Kind:      kind,
		Message:   message,
		CreatedAt: s.Now().UTC(),
	}
	if err := n.Validate(); err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, "notification.Notify", err, "invalid notification")
	}

	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("notification_id", n.ID.String()).
		Str("user_id", userID.String()).
		Str("kind", kind).
		Msg(message)
	return n, nil
}

// List returns the notifications of a user, newest first
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	return s.Repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flags one of the user's notifications as read.
// A notification owned by someone else is reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.Repo.MarkRead(ctx, id, userID)
}
