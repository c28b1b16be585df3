package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/usecase/valuation"
)

// PriceResolver resolves the settlement price of an installment
type PriceResolver interface {
	Resolve(ctx context.Context, instrumentID string, dueDate time.Time) (*valuation.Quote, error)
}

// TransitionResult is the outcome of a state transition.
// UnitsBought and Price are zero unless this call moved the record to PAID.
type TransitionResult struct {
	Record      *domain.LedgerRecord
	Plan        *domain.Plan
	UnitsBought decimal.Decimal
	Price       decimal.Decimal
	NoOp        bool // the record already held the target state
}

// SettlementService moves ledger records through their lifecycle
type SettlementService struct {
	LedgerRepo domain.LedgerRepository
	PlanRepo   domain.PlanRepository
	Prices     PriceResolver
	Log        zerolog.Logger
}

// NewSettlementService creates a new SettlementService instance
func NewSettlementService(ledgerRepo domain.LedgerRepository, planRepo domain.PlanRepository, prices PriceResolver, log zerolog.Logger) *SettlementService {
	return &SettlementService{
		LedgerRepo: ledgerRepo,
		PlanRepo:   planRepo,
		Prices:     prices,
		Log:        log,
	}
}

// Transition moves a ledger record to target.
// Logic:
//   - Target equal to the current state: no-op
//   - Only PENDING -> PAID / FAILED / SKIPPED is allowed
//   - PAID resolves the price first, so a missing price leaves the record PENDING
//   - units = amount / price, then the record and plan units are written in one transaction
//   - Losing a race to a concurrent transition yields a no-op if the winner reached the
//     same target, otherwise a StorageConflict
func (s *SettlementService) Transition(ctx context.Context, recordID uuid.UUID, target domain.RecordState) (*TransitionResult, error) {
	const op = "settlement.Transition"

	if _, err := domain.ParseRecordState(string(target)); err != nil {
		return nil, err
	}

	record, err := s.LedgerRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.State == target {
		return s.noOp(ctx, record)
	}
	if !domain.CanTransition(record.State, target) {
		return nil, domain.InvalidInput(op, "cannot move record %s from %s to %s", recordID, record.State, target)
	}

	if target != domain.StatePaid {
		updated, err := s.LedgerRepo.UpdateState(ctx, recordID, domain.StatePending, target)
		if err != nil {
			return s.afterConflict(ctx, recordID, target, err)
		}
		s.Log.Info().
			Str("record_id", recordID.String()).
			Str("from", string(record.State)).
			Str("to", string(target)).
			Msg("ledger record transitioned")
		plan, err := s.PlanRepo.GetByID(ctx, updated.PlanID)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Record: updated, Plan: plan}, nil
	}

	plan, err := s.PlanRepo.GetByID(ctx, record.PlanID)
	if err != nil {
		return nil, err
	}

	quote, err := s.Prices.Resolve(ctx, plan.InstrumentID, record.DueDate)
	if err != nil {
		return nil, err
	}
	if !quote.Price.IsPositive() {
		return nil, domain.NewError(domain.KindValuationUnavailable, op, "resolved price %s is not positive", quote.Price)
	}

	units := record.Amount.Div(quote.Price)

	paid, updatedPlan, err := s.LedgerRepo.MarkPaid(ctx, recordID, quote.Price, units)
	if err != nil {
		return s.afterConflict(ctx, recordID, target, err)
	}

	s.Log.Info().
		Str("record_id", recordID.String()).
		Str("plan_id", plan.ID.String()).
		Str("from", string(record.State)).
		Str("to", string(domain.StatePaid)).
		Str("price", quote.Price.String()).
		Bool("fallback_price", quote.Fallback).
		Str("units", units.String()).
		Msg("installment settled")

	return &TransitionResult{
		Record:      paid,
		Plan:        updatedPlan,
		UnitsBought: units,
		Price:       quote.Price,
	}, nil
}

// afterConflict re-reads a record whose conditional update matched no row.
func (s *SettlementService) afterConflict(ctx context.Context, recordID uuid.UUID, target domain.RecordState, cause error) (*TransitionResult, error) {
	if !errors.Is(cause, domain.ErrStorageConflict) {
		return nil, cause
	}
	current, err := s.LedgerRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if current.State == target {
		return s.noOp(ctx, current)
	}
	return nil, cause
}

func (s *SettlementService) noOp(ctx context.Context, record *domain.LedgerRecord) (*TransitionResult, error) {
	plan, err := s.PlanRepo.GetByID(ctx, record.PlanID)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Record: record, Plan: plan, NoOp: true}, nil
}
