package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// notificationRepository implements domain.NotificationRepository
type notificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, plan_id, kind, message, is_read, created_at`

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	var planID uuid.NullUUID

	if err := row.Scan(&n.ID, &n.UserID, &planID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	if planID.Valid {
		id := planID.UUID
		n.PlanID = &id
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}

// Create stores a new notification
func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, plan_id, kind, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		nullableUUID(n.PlanID),
		n.Kind,
		n.Message,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return translate("notifications.Create", err, "failed to store notification for user %s", n.UserID)
	}
	return nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, translate("notifications.ListByUser", err, "failed to query notifications of %s", userID)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}

// MarkRead flags a notification of userID as read
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return translate("notifications.MarkRead", err, "failed to mark notification %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindNotFound, "notifications.MarkRead", "notification %s not found for user %s", id, userID)
	}
	return nil
}
