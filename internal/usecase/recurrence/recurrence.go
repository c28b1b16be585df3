package recurrence

import (
	"time"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// NextDueDate calculates the date on which the next installment of a plan is due.
// Logic:
//   - No previous installment: the first installment is due on the start date itself
//   - Otherwise advance the last installment's due date by one period of the frequency
//     (WEEKLY +7 days, MONTHLY +1 calendar month, QUARTERLY +3 calendar months)
//   - Month arithmetic clamps to the last day of the target month (Jan 31 -> Feb 28)
//
// All dates are normalized to midnight UTC; time of day never matters.
func NextDueDate(startDate time.Time, frequency domain.Frequency, lastDue *time.Time) (time.Time, error) {
	const op = "recurrence.NextDueDate"

	if startDate.IsZero() {
		return time.Time{}, domain.InvalidInput(op, "start date is required")
	}
	if !frequency.Valid() {
		return time.Time{}, domain.InvalidInput(op, "unsupported frequency %q", frequency)
	}

	if lastDue == nil || lastDue.IsZero() {
		return domain.NormalizeDate(startDate), nil
	}

	return Advance(domain.NormalizeDate(*lastDue), frequency), nil
}

// Advance moves a date forward by exactly one period of frequency.
// frequency must be valid.
func Advance(date time.Time, frequency domain.Frequency) time.Time {
	switch frequency {
	case domain.FrequencyWeekly:
		return domain.NormalizeDate(date).AddDate(0, 0, 7)
	case domain.FrequencyQuarterly:
		return AddMonthsClamped(date, 3)
	default:
		return AddMonthsClamped(date, 1)
	}
}

// AddMonthsClamped adds n calendar months to date. When the day of month does not exist in
// the target month the result is that month's last day, never an overflow into the next one.
func AddMonthsClamped(date time.Time, n int) time.Time {
	y, m, d := domain.NormalizeDate(date).Date()

	// Day 1 never overflows, so this always lands in the target month.
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// ElapsedPeriods counts the whole periods of frequency between start and now, floored.
// Returns 0 when now is before start.
func ElapsedPeriods(start, now time.Time, frequency domain.Frequency) int {
	start = domain.NormalizeDate(start)
	now = domain.NormalizeDate(now)
	if now.Before(start) {
		return 0
	}

	switch frequency {
	case domain.FrequencyWeekly:
		days := int(now.Sub(start).Hours() / 24)
		return days / 7
	case domain.FrequencyQuarterly:
		return elapsedMonths(start, now) / 3
	default:
		return elapsedMonths(start, now)
	}
}

// elapsedMonths counts whole calendar months; a month is complete once now reaches the
// start's day of month (clamped to the length of now's month).
func elapsedMonths(start, now time.Time) int {
	months := (now.Year()-start.Year())*12 + int(now.Month()-start.Month())

	anniversary := start.Day()
	if last := daysIn(now.Year(), now.Month()); anniversary > last {
		anniversary = last
	}
	if now.Day() < anniversary {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
