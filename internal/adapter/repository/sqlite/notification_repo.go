package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

type notificationRepository struct {
	store *Store
}

const notificationColumns = `id, user_id, plan_id, kind, message, is_read, created_at`

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	var planID uuid.NullUUID
	var createdStr string

	if err := row.Scan(&n.ID, &n.UserID, &planID, &n.Kind, &n.Message, &n.Read, &createdStr); err != nil {
		return nil, err
	}
	if planID.Valid {
		id := planID.UUID
		n.PlanID = &id
	}

	var err error
	if n.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, plan_id, kind, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID.String(),
		n.UserID.String(),
		nullableUUID(n.PlanID),
		n.Kind,
		n.Message,
		n.Read,
		formatTimestamp(n.CreatedAt),
	)
	if err != nil {
		return translate("notifications.Create", err, "failed to store notification for user %s", n.UserID)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.store.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, translate("notifications.ListByUser", err, "failed to query notifications of %s", userID)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("notifications.ListByUser: scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.store.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`,
		id.String(), userID.String(),
	)
	if err != nil {
		return translate("notifications.MarkRead", err, "failed to mark notification %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindNotFound, "notifications.MarkRead", "notification %s not found for user %s", id, userID)
	}
	return nil
}
