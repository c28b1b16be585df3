package plan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// CreateInput holds the fields a caller supplies for a new plan
type CreateInput struct {
	UserID       uuid.UUID
	InstrumentID string
	Amount       decimal.Decimal
	StartDate    time.Time
	Frequency    domain.Frequency
	GoalID       *uuid.UUID
}

// UpdateInput is a partial edit; nil fields are left unchanged
type UpdateInput struct {
	Amount    *decimal.Decimal
	Frequency *domain.Frequency
	Active    *bool
	GoalID    *uuid.UUID
	ClearGoal bool
}

// PlanService handles plan lifecycle operations
type PlanService struct {
	PlanRepo domain.PlanRepository
	Log      zerolog.Logger
}

// NewPlanService creates a new PlanService instance
func NewPlanService(planRepo domain.PlanRepository, log zerolog.Logger) *PlanService {
	return &PlanService{
		PlanRepo: planRepo,
		Log:      log,
	}
}

// Create validates and stores a new active plan with no units
func (s *PlanService) Create(ctx context.Context, in CreateInput) (*domain.Plan, error) {
	now := time.Now().UTC()
	plan := &domain.Plan{
		ID:             uuid.New(),
		UserID:         in.UserID,
		InstrumentID:   in.InstrumentID,
		Amount:         in.Amount,
		StartDate:      domain.NormalizeDate(in.StartDate),
		Frequency:      in.Frequency,
		Active:         true,
		Units:          decimal.Zero,
		InvestedAmount: in.Amount,
		GoalID:         in.GoalID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := plan.Validate(); err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, "plan.Create", err, "invalid plan")
	}

	if err := s.PlanRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("plan_id", plan.ID.String()).
		Str("user_id", plan.UserID.String()).
		Str("instrument", plan.InstrumentID).
		Str("frequency", string(plan.Frequency)).
		Msg("plan created")
	return plan, nil
}

// Update applies a partial edit. Changing the amount also moves the informational
// invested amount, which mirrors it; units are never touched here.
func (s *PlanService) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Plan, error) {
	plan, err := s.PlanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Amount != nil {
		plan.Amount = *in.Amount
		plan.InvestedAmount = *in.Amount
	}
	if in.Frequency != nil {
		plan.Frequency = *in.Frequency
	}
	if in.Active != nil {
		plan.Active = *in.Active
	}
	if in.GoalID != nil {
		plan.GoalID = in.GoalID
	}
	if in.ClearGoal {
		plan.GoalID = nil
	}
	plan.UpdatedAt = time.Now().UTC()

	if err := plan.Validate(); err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, "plan.Update", err, "invalid plan %s", id)
	}

	if err := s.PlanRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Stop deactivates a plan so the scheduler no longer materializes installments for it
func (s *PlanService) Stop(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	inactive := false
	return s.Update(ctx, id, UpdateInput{Active: &inactive})
}

// Delete removes a plan that has no ledger records
func (s *PlanService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.PlanRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.Log.Info().Str("plan_id", id.String()).Msg("plan deleted")
	return nil
}

// Get retrieves a plan by ID
func (s *PlanService) Get(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return s.PlanRepo.GetByID(ctx, id)
}

// ListForUser lists every plan a user owns
func (s *PlanService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Plan, error) {
	if userID == uuid.Nil {
		return nil, domain.InvalidInput("plan.ListForUser", "user is required")
	}
	return s.PlanRepo.ListByUser(ctx, userID)
}
