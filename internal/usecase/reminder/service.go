package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/usecase/notification"
	"github.com/simaogato/sipledger-backend/internal/usecase/recurrence"
)

// Kind tells what a reminder is about
type Kind string

const (
	KindDueTomorrow Kind = "DUE_TOMORROW"
	KindMissedToday Kind = "MISSED_TODAY"
)

// DefaultCurrency is used when no currency is configured
const DefaultCurrency = "INR"

// Reminder is one notice for a plan owner
type Reminder struct {
	PlanID  uuid.UUID
	UserID  uuid.UUID
	Kind    Kind
	DueDate time.Time
	Amount  decimal.Decimal
	Message string
}

// Notifier delivers reminders
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// InboxNotifier stores each reminder as a notification for the plan owner
type InboxNotifier struct {
	Notifications *notification.NotificationService
}

// Notify saves the reminder in the owner's notifications
func (n InboxNotifier) Notify(ctx context.Context, r Reminder) error {
	planID := r.PlanID
	_, err := n.Notifications.Notify(ctx, r.UserID, &planID, string(r.Kind), r.Message)
	return err
}

// SendSummary counts the reminders handed to the notifier
type SendSummary struct {
	DueTomorrow int
	MissedToday int
	Failed      int
}

// ReminderService computes due and missed installment notices
type ReminderService struct {
	PlanRepo   domain.PlanRepository
	LedgerRepo domain.LedgerRepository
	Notifier   Notifier
	Currency   string
	Log        zerolog.Logger
	Now        func() time.Time
}

// NewReminderService creates a new ReminderService instance
func NewReminderService(planRepo domain.PlanRepository, ledgerRepo domain.LedgerRepository, notifier Notifier, currency string, log zerolog.Logger) *ReminderService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &ReminderService{
		PlanRepo:   planRepo,
		LedgerRepo: ledgerRepo,
		Notifier:   notifier,
		Currency:   currency,
		Log:        log,
		Now:        time.Now,
	}
}

// DueTomorrow lists active plans whose next installment falls on tomorrow
func (s *ReminderService) DueTomorrow(ctx context.Context) ([]Reminder, error) {
	today := domain.NormalizeDate(s.Now())
	tomorrow := today.AddDate(0, 0, 1)

	return s.collect(ctx, func(plan *domain.Plan, last *domain.LedgerRecord, nextDue time.Time) (Reminder, bool) {
		if !nextDue.Equal(tomorrow) {
			return Reminder{}, false
		}
		return Reminder{
			Kind:    KindDueTomorrow,
			DueDate: tomorrow,
			Message: fmt.Sprintf("Installment of %s for %s is due tomorrow (%s)",
				s.formatAmount(plan.Amount), plan.InstrumentID, tomorrow.Format(time.DateOnly)),
		}, true
	})
}

// MissedToday lists active plans with an installment due today that has not been paid
func (s *ReminderService) MissedToday(ctx context.Context) ([]Reminder, error) {
	today := domain.NormalizeDate(s.Now())

	return s.collect(ctx, func(plan *domain.Plan, last *domain.LedgerRecord, nextDue time.Time) (Reminder, bool) {
		switch {
		case last != nil && last.DueDate.Equal(today):
			if last.State == domain.StatePaid {
				return Reminder{}, false
			}
		case !nextDue.Equal(today):
			return Reminder{}, false
		}
		return Reminder{
			Kind:    KindMissedToday,
			DueDate: today,
			Message: fmt.Sprintf("Installment of %s for %s due today (%s) has not been paid",
				s.formatAmount(plan.Amount), plan.InstrumentID, today.Format(time.DateOnly)),
		}, true
	})
}

// Send computes both kinds of reminders and hands each one to the notifier.
// A notifier failure is logged and counted, it never stops the remaining reminders.
func (s *ReminderService) Send(ctx context.Context) (*SendSummary, error) {
	due, err := s.DueTomorrow(ctx)
	if err != nil {
		return nil, err
	}
	missed, err := s.MissedToday(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SendSummary{}
	for _, r := range append(due, missed...) {
		if err := s.Notifier.Notify(ctx, r); err != nil {
			summary.Failed++
			s.Log.Warn().Err(err).Str("plan_id", r.PlanID.String()).Str("kind", string(r.Kind)).Msg("reminder not delivered")
			continue
		}
		if r.Kind == KindDueTomorrow {
			summary.DueTomorrow++
		} else {
			summary.MissedToday++
		}
	}
	return summary, nil
}

type matchFunc func(plan *domain.Plan, last *domain.LedgerRecord, nextDue time.Time) (Reminder, bool)

func (s *ReminderService) collect(ctx context.Context, match matchFunc) ([]Reminder, error) {
	plans, err := s.PlanRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var reminders []Reminder
	for _, plan := range plans {
		last, err := s.LedgerRepo.LatestByType(ctx, plan.ID, domain.RecordTypeInstallment)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		var lastDue *time.Time
		if last != nil {
			lastDue = &last.DueDate
		}

		nextDue, err := recurrence.NextDueDate(plan.StartDate, plan.Frequency, lastDue)
		if err != nil {
			s.Log.Warn().Err(err).Str("plan_id", plan.ID.String()).Msg("skipping plan with invalid schedule")
			continue
		}

		if r, ok := match(plan, last, nextDue); ok {
			r.PlanID = plan.ID
			r.UserID = plan.UserID
			r.Amount = plan.Amount
			reminders = append(reminders, r)
		}
	}
	return reminders, nil
}

// formatAmount renders amount in the configured currency, e.g. ₹5,000.00
func (s *ReminderService) formatAmount(amount decimal.Decimal) string {
	cur := money.GetCurrency(s.Currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + s.Currency
	}
	minor := amount.Shift(int32(cur.Fraction))
	return money.New(minor.IntPart(), cur.Code).Display()
}
