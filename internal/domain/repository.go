package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanRepository defines the interface for plan persistence operations
type PlanRepository interface {
	// GetByID retrieves a plan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)

	// Create creates a new plan
	Create(ctx context.Context, plan *Plan) error

	// Update persists the editable fields of a plan (amount, frequency, active, goal, invested amount).
	// Units are never written here; they only move through LedgerRepository.MarkPaid.
	Update(ctx context.Context, plan *Plan) error

	// Delete removes a plan. Fails with a StorageConflict error while ledger records reference it.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListActive retrieves every plan whose active flag is set
	ListActive(ctx context.Context) ([]*Plan, error)

	// ListByUser retrieves all plans owned by a user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Plan, error)
}

// LedgerRepository defines the interface for ledger record persistence operations
type LedgerRepository interface {
	// GetByID retrieves a ledger record by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*LedgerRecord, error)

	// LatestByType retrieves the record of the given type with the latest due date for a plan.
	// Returns a NotFound error when the plan has none.
	LatestByType(ctx context.Context, planID uuid.UUID, recordType RecordType) (*LedgerRecord, error)

	// FindPendingForDate retrieves the PENDING record of a plan due on the given calendar day.
	// Returns a NotFound error when there is none.
	FindPendingForDate(ctx context.Context, planID uuid.UUID, dueDate time.Time) (*LedgerRecord, error)

	// CreatePending inserts a PENDING record. The store enforces uniqueness of (plan, due date)
	// and reports a violation as a StorageConflict error.
	CreatePending(ctx context.Context, record *LedgerRecord) error

	// UpdateState moves a record from one state to another without side effects.
	// Returns a StorageConflict error when the record is no longer in the from state.
	UpdateState(ctx context.Context, id uuid.UUID, from, to RecordState) (*LedgerRecord, error)

	// MarkPaid atomically moves a PENDING record to PAID, stamps the price and units on it
	// and adds units to the owning plan. Either both writes are committed or neither is.
	// Returns a StorageConflict error when the record is no longer PENDING.
	MarkPaid(ctx context.Context, id uuid.UUID, price, units decimal.Decimal) (*LedgerRecord, *Plan, error)

	// ListByPlan retrieves all records of a plan ordered by due date ascending
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*LedgerRecord, error)
}

// ValuationRepository defines the interface for price history persistence operations
type ValuationRepository interface {
	// Add records a price point. Re-adding the same (instrument, as of) overwrites the price.
	Add(ctx context.Context, point *ValuationPoint) error

	// PriceOnOrBefore retrieves the most recent point with AsOf <= at.
	// Returns a NotFound error when there is none.
	PriceOnOrBefore(ctx context.Context, instrumentID string, at time.Time) (*ValuationPoint, error)

	// LatestPrice retrieves the most recent point of an instrument.
	// Returns a NotFound error when there is none.
	LatestPrice(ctx context.Context, instrumentID string) (*ValuationPoint, error)

	// ListRange retrieves points with from <= AsOf <= to ordered by AsOf ascending
	ListRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*ValuationPoint, error)
}

// NotificationRepository defines the interface for user notification persistence operations
type NotificationRepository interface {
	// Create stores a new unread notification
	Create(ctx context.Context, n *Notification) error

	// ListByUser retrieves a user's notifications, newest first. unreadOnly drops read ones.
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error)

	// MarkRead flags a notification as read. Returns a NotFound error unless
	// the notification exists and belongs to userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}
