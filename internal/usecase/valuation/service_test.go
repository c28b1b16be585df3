package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/domain/mocks"
)

const fund = "INF200K01RJ1"

var notFound = domain.NewError(domain.KindNotFound, "test", "no price")

func newService() (*ValuationService, *mocks.ValuationRepository, *mocks.PlanRepository, *mocks.LedgerRepository) {
	valuations := new(mocks.ValuationRepository)
	plans := new(mocks.PlanRepository)
	ledger := new(mocks.LedgerRepository)
	return NewValuationService(valuations, plans, ledger), valuations, plans, ledger
}

func point(asOf time.Time, price string) *domain.ValuationPoint {
	return &domain.ValuationPoint{ID: uuid.New(), InstrumentID: fund, AsOf: asOf, Price: decimal.RequireFromString(price)}
}

func TestResolve_SameDayPoint(t *testing.T) {
	ctx := context.Background()
	service, valuations, _, _ := newService()

	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	valuations.On("PriceOnOrBefore", ctx, fund, mock.AnythingOfType("time.Time")).
		Return(point(due.Add(18*time.Hour), "101.25"), nil)

	quote, err := service.Resolve(ctx, fund, due)

	require.NoError(t, err)
	assert.Equal(t, "101.25", quote.Price.String())
	assert.False(t, quote.Fallback)
	valuations.AssertNotCalled(t, "LatestPrice", mock.Anything, mock.Anything)
}

func TestResolve_FallsBackToLatestWhenPointIsStale(t *testing.T) {
	ctx := context.Background()
	service, valuations, _, _ := newService()

	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	valuations.On("PriceOnOrBefore", ctx, fund, mock.AnythingOfType("time.Time")).
		Return(point(due.AddDate(0, 0, -3), "95"), nil)
	valuations.On("LatestPrice", ctx, fund).Return(point(due.AddDate(0, 0, 5), "104"), nil)

	quote, err := service.Resolve(ctx, fund, due)

	require.NoError(t, err)
	assert.Equal(t, "104", quote.Price.String())
	assert.True(t, quote.Fallback)
	valuations.AssertExpectations(t)
}

func TestResolve_FallsBackWhenNoPointBefore(t *testing.T) {
	ctx := context.Background()
	service, valuations, _, _ := newService()

	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	valuations.On("PriceOnOrBefore", ctx, fund, mock.AnythingOfType("time.Time")).Return(nil, notFound)
	valuations.On("LatestPrice", ctx, fund).Return(point(due.AddDate(0, 0, 2), "99"), nil)

	quote, err := service.Resolve(ctx, fund, due)

	require.NoError(t, err)
	assert.Equal(t, "99", quote.Price.String())
	assert.True(t, quote.Fallback)
}

func TestResolve_Unavailable(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("No price at all", func(t *testing.T) {
		service, valuations, _, _ := newService()
		valuations.On("PriceOnOrBefore", ctx, fund, mock.AnythingOfType("time.Time")).Return(nil, notFound)
		valuations.On("LatestPrice", ctx, fund).Return(nil, notFound)

		_, err := service.Resolve(ctx, fund, due)
		assert.ErrorIs(t, err, domain.ErrValuationUnavailable)
	})

	t.Run("Non-positive same day price", func(t *testing.T) {
		service, valuations, _, _ := newService()
		valuations.On("PriceOnOrBefore", ctx, fund, mock.AnythingOfType("time.Time")).
			Return(point(due.Add(time.Hour), "0"), nil)

		_, err := service.Resolve(ctx, fund, due)
		assert.ErrorIs(t, err, domain.ErrValuationUnavailable)
	})

	t.Run("Storage error surfaces unchanged", func(t *testing.T) {
		service, valuations, _, _ := newService()
		boom := errors.New("connection reset")
		valuations.On("PriceOnOrBefore", ctx, fund, mock.AnythingOfType("time.Time")).Return(nil, boom)

		_, err := service.Resolve(ctx, fund, due)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	})
}

func TestResolve_InvalidInput(t *testing.T) {
	service, _, _, _ := newService()

	_, err := service.Resolve(context.Background(), "", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.Resolve(context.Background(), fund, time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordPrice(t *testing.T) {
	ctx := context.Background()
	service, valuations, _, _ := newService()
	asOf := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	valuations.On("Add", ctx, mock.MatchedBy(func(p *domain.ValuationPoint) bool {
		return p.InstrumentID == fund && p.AsOf.Equal(asOf) && p.Price.Equal(decimal.NewFromInt(100))
	})).Return(nil)

	got, err := service.RecordPrice(ctx, fund, asOf, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)

	_, err = service.RecordPrice(ctx, fund, asOf, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	valuations.AssertNumberOfCalls(t, "Add", 1)
}

func TestHistory_RejectsInvertedRange(t *testing.T) {
	service, _, _, _ := newService()
	_, err := service.History(context.Background(), fund, time.Now(), time.Now().AddDate(0, 0, -1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarketValue_GainAgainstPaidInstallments(t *testing.T) {
	ctx := context.Background()
	service, valuations, plans, ledger := newService()

	planID := uuid.New()
	plan := &domain.Plan{ID: planID, InstrumentID: fund, Units: decimal.NewFromInt(100)}
	plans.On("GetByID", ctx, planID).Return(plan, nil)
	valuations.On("LatestPrice", ctx, fund).Return(point(time.Now(), "110"), nil)
	ledger.On("ListByPlan", ctx, planID).Return([]*domain.LedgerRecord{
		{Type: domain.RecordTypeInstallment, State: domain.StatePaid, Amount: decimal.NewFromInt(5000)},
		{Type: domain.RecordTypeInstallment, State: domain.StatePaid, Amount: decimal.NewFromInt(5000)},
		{Type: domain.RecordTypeInstallment, State: domain.StatePending, Amount: decimal.NewFromInt(5000)},
	}, nil)

	got, err := service.MarketValue(ctx, planID)

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(11000).Equal(got.MarketValue))
	assert.True(t, decimal.NewFromInt(10000).Equal(got.PaidAmount))
	assert.True(t, decimal.NewFromInt(1000).Equal(got.Gain))
}
