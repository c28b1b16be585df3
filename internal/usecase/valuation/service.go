package valuation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// dayWindow is how far after the due date a price point still counts as the due date's price.
const dayWindow = 24 * time.Hour

// Quote is a resolved price-per-unit.
type Quote struct {
	Price    decimal.Decimal
	AsOf     time.Time
	Fallback bool // true when the latest known price replaced a missing same-day point
}

// PlanValuation is the mark-to-market of a plan's accumulated units.
type PlanValuation struct {
	PlanID      uuid.UUID
	Units       decimal.Decimal
	Price       decimal.Decimal
	AsOf        time.Time
	MarketValue decimal.Decimal
	PaidAmount  decimal.Decimal // sum of PAID installment amounts
	Gain        decimal.Decimal // MarketValue - PaidAmount
}

// ValuationService handles price lookups and price history
type ValuationService struct {
	ValuationRepo domain.ValuationRepository
	PlanRepo      domain.PlanRepository
	LedgerRepo    domain.LedgerRepository
}

// NewValuationService creates a new ValuationService instance
func NewValuationService(valuationRepo domain.ValuationRepository, planRepo domain.PlanRepository, ledgerRepo domain.LedgerRepository) *ValuationService {
	return &ValuationService{
		ValuationRepo: valuationRepo,
		PlanRepo:      planRepo,
		LedgerRepo:    ledgerRepo,
	}
}

// Resolve returns the price-per-unit to settle an installment due on dueDate.
// Logic:
//   - Take the latest point at or before the end of the due day
//   - Accept it only if it lies within [dueDate, dueDate+24h)
//   - Otherwise fall back to the instrument's latest known price
//   - No price at all, or a non-positive price, is ValuationUnavailable
func (s *ValuationService) Resolve(ctx context.Context, instrumentID string, dueDate time.Time) (*Quote, error) {
	const op = "valuation.Resolve"

	if strings.TrimSpace(instrumentID) == "" {
		return nil, domain.InvalidInput(op, "instrument is required")
	}
	if dueDate.IsZero() {
		return nil, domain.InvalidInput(op, "due date is required")
	}

	day := domain.NormalizeDate(dueDate)
	windowEnd := day.Add(dayWindow)

	point, err := s.ValuationRepo.PriceOnOrBefore(ctx, instrumentID, windowEnd.Add(-time.Nanosecond))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	quote := &Quote{}
	if point != nil && !point.AsOf.Before(day) && point.AsOf.Before(windowEnd) {
		quote.Price, quote.AsOf = point.Price, point.AsOf
	} else {
		latest, err := s.ValuationRepo.LatestPrice(ctx, instrumentID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.KindValuationUnavailable, op, err, "no price known for %s", instrumentID)
		}
		if err != nil {
			return nil, err
		}
		quote.Price, quote.AsOf, quote.Fallback = latest.Price, latest.AsOf, true
	}

	if !quote.Price.IsPositive() {
		return nil, domain.NewError(domain.KindValuationUnavailable, op,
			"resolved price %s for %s is not positive", quote.Price, instrumentID)
	}
	return quote, nil
}

// RecordPrice stores a price point for an instrument
func (s *ValuationService) RecordPrice(ctx context.Context, instrumentID string, asOf time.Time, price decimal.Decimal) (*domain.ValuationPoint, error) {
	const op = "valuation.RecordPrice"

	if strings.TrimSpace(instrumentID) == "" {
		return nil, domain.InvalidInput(op, "instrument is required")
	}
	if asOf.IsZero() {
		return nil, domain.InvalidInput(op, "as of time is required")
	}
	if !price.IsPositive() {
		return nil, domain.InvalidInput(op, "price must be positive")
	}

	point := &domain.ValuationPoint{
		ID:           uuid.New(),
		InstrumentID: instrumentID,
		AsOf:         asOf.UTC(),
		Price:        price,
	}
	if err := s.ValuationRepo.Add(ctx, point); err != nil {
		return nil, err
	}
	return point, nil
}

// History lists the price points of an instrument between from and to, inclusive
func (s *ValuationService) History(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.ValuationPoint, error) {
	if to.Before(from) {
		return nil, domain.InvalidInput("valuation.History", "range end %s is before start %s",
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return s.ValuationRepo.ListRange(ctx, instrumentID, from, to)
}

// MarketValue values a plan's units at the latest known price.
// Gain = MarketValue - sum of paid installment amounts
func (s *ValuationService) MarketValue(ctx context.Context, planID uuid.UUID) (*PlanValuation, error) {
	plan, err := s.PlanRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	latest, err := s.ValuationRepo.LatestPrice(ctx, plan.InstrumentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.WrapError(domain.KindValuationUnavailable, "valuation.MarketValue", err,
			"no price known for %s", plan.InstrumentID)
	}
	if err != nil {
		return nil, err
	}

	records, err := s.LedgerRepo.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	paid := decimal.Zero
	for _, r := range records {
		if r.Type == domain.RecordTypeInstallment && r.State == domain.StatePaid {
			paid = paid.Add(r.Amount)
		}
	}

	marketValue := plan.Units.Mul(latest.Price)
	return &PlanValuation{
		PlanID:      plan.ID,
		Units:       plan.Units,
		Price:       latest.Price,
		AsOf:        latest.AsOf,
		MarketValue: marketValue,
		PaidAmount:  paid,
		Gain:        marketValue.Sub(paid),
	}, nil
}
