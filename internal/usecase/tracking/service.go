package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// PlanStatus pairs a plan with its health
type PlanStatus struct {
	Plan   *domain.Plan
	Health *Health
}

// TrackingService answers read-only plan health queries
type TrackingService struct {
	PlanRepo   domain.PlanRepository
	LedgerRepo domain.LedgerRepository
	Now        func() time.Time
}

// NewTrackingService creates a new TrackingService instance
func NewTrackingService(planRepo domain.PlanRepository, ledgerRepo domain.LedgerRepository) *TrackingService {
	return &TrackingService{
		PlanRepo:   planRepo,
		LedgerRepo: ledgerRepo,
		Now:        time.Now,
	}
}

// ClassifyPlan returns the health of one plan as of now
func (s *TrackingService) ClassifyPlan(ctx context.Context, planID uuid.UUID) (*PlanStatus, error) {
	plan, err := s.PlanRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	return s.classify(ctx, plan)
}

// ListRecords returns the ledger records of a plan ordered by due date.
// An unknown plan is a NotFound error rather than an empty list.
func (s *TrackingService) ListRecords(ctx context.Context, planID uuid.UUID) ([]*domain.LedgerRecord, error) {
	if _, err := s.PlanRepo.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.LedgerRepo.ListByPlan(ctx, planID)
}

// ClassifyUserPlans returns the health of every plan a user owns, newest plan first
func (s *TrackingService) ClassifyUserPlans(ctx context.Context, userID uuid.UUID) ([]*PlanStatus, error) {
	plans, err := s.PlanRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]*PlanStatus, 0, len(plans))
	for _, plan := range plans {
		status, err := s.classify(ctx, plan)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *TrackingService) classify(ctx context.Context, plan *domain.Plan) (*PlanStatus, error) {
	records, err := s.LedgerRepo.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	health, err := Classify(plan, records, s.Now())
	if err != nil {
		return nil, err
	}
	return &PlanStatus{Plan: plan, Health: health}, nil
}
