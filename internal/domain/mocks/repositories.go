// Package mocks holds testify mocks of the domain repositories shared by the usecase tests.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// PlanRepository is a mock implementation of domain.PlanRepository
type PlanRepository struct {
	mock.Mock
}

func (m *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *PlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *PlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *PlanRepository) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

func (m *PlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Plan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

// LedgerRepository is a mock implementation of domain.LedgerRepository
type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerRecord), args.Error(1)
}

func (m *LedgerRepository) LatestByType(ctx context.Context, planID uuid.UUID, recordType domain.RecordType) (*domain.LedgerRecord, error) {
	args := m.Called(ctx, planID, recordType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerRecord), args.Error(1)
}

func (m *LedgerRepository) FindPendingForDate(ctx context.Context, planID uuid.UUID, dueDate time.Time) (*domain.LedgerRecord, error) {
	args := m.Called(ctx, planID, dueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerRecord), args.Error(1)
}

func (m *LedgerRepository) CreatePending(ctx context.Context, record *domain.LedgerRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *LedgerRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to domain.RecordState) (*domain.LedgerRecord, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerRecord), args.Error(1)
}

func (m *LedgerRepository) MarkPaid(ctx context.Context, id uuid.UUID, price, units decimal.Decimal) (*domain.LedgerRecord, *domain.Plan, error) {
	args := m.Called(ctx, id, price, units)
	var record *domain.LedgerRecord
	var plan *domain.Plan
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.LedgerRecord)
	}
	if args.Get(1) != nil {
		plan = args.Get(1).(*domain.Plan)
	}
	return record, plan, args.Error(2)
}

func (m *LedgerRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.LedgerRecord, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerRecord), args.Error(1)
}

// ValuationRepository is a mock implementation of domain.ValuationRepository
type ValuationRepository struct {
	mock.Mock
}

func (m *ValuationRepository) Add(ctx context.Context, point *domain.ValuationPoint) error {
	args := m.Called(ctx, point)
	return args.Error(0)
}

func (m *ValuationRepository) PriceOnOrBefore(ctx context.Context, instrumentID string, at time.Time) (*domain.ValuationPoint, error) {
	args := m.Called(ctx, instrumentID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValuationPoint), args.Error(1)
}

func (m *ValuationRepository) LatestPrice(ctx context.Context, instrumentID string) (*domain.ValuationPoint, error) {
	args := m.Called(ctx, instrumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValuationPoint), args.Error(1)
}

func (m *ValuationRepository) ListRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.ValuationPoint, error) {
	args := m.Called(ctx, instrumentID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ValuationPoint), args.Error(1)
}

// NotificationRepository is a mock implementation of domain.NotificationRepository
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
