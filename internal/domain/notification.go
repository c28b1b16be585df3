package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification is a message stored for a user, such as an installment reminder.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PlanID    *uuid.UUID // plan the message is about, if any
	Kind      string     // e.g. DUE_TOMORROW
	Message   string
	Read      bool
	CreatedAt time.Time
}

// Validate ensures the notification can be stored
func (n *Notification) Validate() error {
	if n.UserID == uuid.Nil {
		return errors.New("notification must belong to a user")
	}
	if strings.TrimSpace(n.Message) == "" {
		return errors.New("notification message is required")
	}
	return nil
}
