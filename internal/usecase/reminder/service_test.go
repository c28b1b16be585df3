package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/domain/mocks"
	"github.com/simaogato/sipledger-backend/internal/usecase/notification"
)

// MockNotifier is a mock implementation of Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, r Reminder) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

var notFound = domain.NewError(domain.KindNotFound, "test", "none")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthly(start time.Time) *domain.Plan {
	return &domain.Plan{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		InstrumentID: "INF200K01RJ1",
		Amount:       decimal.NewFromInt(5000),
		StartDate:    start,
		Frequency:    domain.FrequencyMonthly,
		Active:       true,
	}
}

func newService(plans *mocks.PlanRepository, ledger *mocks.LedgerRepository, notifier Notifier, now time.Time) *ReminderService {
	service := NewReminderService(plans, ledger, notifier, "", zerolog.Nop())
	service.Now = func() time.Time { return now }
	return service
}

func TestDueTomorrow(t *testing.T) {
	ctx := context.Background()
	plans := new(mocks.PlanRepository)
	ledger := new(mocks.LedgerRepository)

	dueTomorrow := monthly(day(2025, 1, 10))
	notYet := monthly(day(2025, 1, 20))
	firstTomorrow := monthly(day(2025, 3, 11))

	plans.On("ListActive", ctx).Return([]*domain.Plan{dueTomorrow, notYet, firstTomorrow}, nil)
	ledger.On("LatestByType", ctx, dueTomorrow.ID, domain.RecordTypeInstallment).
		Return(&domain.LedgerRecord{DueDate: day(2025, 2, 11), State: domain.StatePaid}, nil)
	ledger.On("LatestByType", ctx, notYet.ID, domain.RecordTypeInstallment).
		Return(&domain.LedgerRecord{DueDate: day(2025, 2, 20), State: domain.StatePaid}, nil)
	ledger.On("LatestByType", ctx, firstTomorrow.ID, domain.RecordTypeInstallment).Return(nil, notFound)

	reminders, err := newService(plans, ledger, nil, day(2025, 3, 10)).DueTomorrow(ctx)

	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, dueTomorrow.ID, reminders[0].PlanID)
	assert.Equal(t, firstTomorrow.ID, reminders[1].PlanID)
	assert.Equal(t, day(2025, 3, 11), reminders[0].DueDate)
	assert.Contains(t, reminders[0].Message, "5,000.00")
}

func TestMissedToday(t *testing.T) {
	ctx := context.Background()
	plans := new(mocks.PlanRepository)
	ledger := new(mocks.LedgerRepository)
	today := day(2025, 3, 10)

	pendingToday := monthly(day(2025, 1, 10))
	paidToday := monthly(day(2025, 1, 10))
	unscheduled := monthly(day(2025, 3, 10))
	elsewhere := monthly(day(2025, 1, 25))

	plans.On("ListActive", ctx).Return([]*domain.Plan{pendingToday, paidToday, unscheduled, elsewhere}, nil)
	ledger.On("LatestByType", ctx, pendingToday.ID, domain.RecordTypeInstallment).
		Return(&domain.LedgerRecord{DueDate: today, State: domain.StatePending}, nil)
	ledger.On("LatestByType", ctx, paidToday.ID, domain.RecordTypeInstallment).
		Return(&domain.LedgerRecord{DueDate: today, State: domain.StatePaid}, nil)
	ledger.On("LatestByType", ctx, unscheduled.ID, domain.RecordTypeInstallment).Return(nil, notFound)
	ledger.On("LatestByType", ctx, elsewhere.ID, domain.RecordTypeInstallment).
		Return(&domain.LedgerRecord{DueDate: day(2025, 2, 25), State: domain.StatePaid}, nil)

	reminders, err := newService(plans, ledger, nil, today.Add(20*time.Hour)).MissedToday(ctx)

	require.NoError(t, err)
	var ids []uuid.UUID
	for _, r := range reminders {
		assert.Equal(t, KindMissedToday, r.Kind)
		ids = append(ids, r.PlanID)
	}
	assert.Equal(t, []uuid.UUID{pendingToday.ID, unscheduled.ID}, ids)
}

func TestSend_CountsDeliveriesAndFailures(t *testing.T) {
	ctx := context.Background()
	plans := new(mocks.PlanRepository)
	ledger := new(mocks.LedgerRepository)
	notifier := new(MockNotifier)

	due := monthly(day(2025, 3, 11))
	missed := monthly(day(2025, 3, 10))
	plans.On("ListActive", ctx).Return([]*domain.Plan{due, missed}, nil)
	ledger.On("LatestByType", ctx, mock.Anything, domain.RecordTypeInstallment).Return(nil, notFound)

	notifier.On("Notify", ctx, mock.MatchedBy(func(r Reminder) bool { return r.Kind == KindDueTomorrow })).Return(nil)
	notifier.On("Notify", ctx, mock.MatchedBy(func(r Reminder) bool { return r.Kind == KindMissedToday })).
		Return(errors.New("smtp unavailable"))

	summary, err := newService(plans, ledger, notifier, day(2025, 3, 10)).Send(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.DueTomorrow)
	assert.Zero(t, summary.MissedToday)
	assert.Equal(t, 1, summary.Failed)
}

func TestInboxNotifier_StoresForPlanOwner(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.NotificationRepository)
	notifier := InboxNotifier{Notifications: notification.NewNotificationService(repo, zerolog.Nop())}

	r := Reminder{
		PlanID:  uuid.New(),
		UserID:  uuid.New(),
		Kind:    KindMissedToday,
		DueDate: day(2025, 3, 10),
		Message: "Installment due today has not been paid",
	}
	repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == r.UserID && n.PlanID != nil && *n.PlanID == r.PlanID &&
			n.Kind == string(KindMissedToday) && n.Message == r.Message
	})).Return(nil)

	require.NoError(t, notifier.Notify(ctx, r))
	repo.AssertExpectations(t)

	failing := new(mocks.NotificationRepository)
	failing.On("Create", ctx, mock.Anything).Return(assert.AnError)
	notifier.Notifications = notification.NewNotificationService(failing, zerolog.Nop())
	assert.ErrorIs(t, notifier.Notify(ctx, r), assert.AnError)
}
