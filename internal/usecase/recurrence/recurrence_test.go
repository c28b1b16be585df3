package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestNextDueDate_NoLastRecordIsStartDate(t *testing.T) {
	start := time.Date(2025, 3, 15, 17, 42, 0, 0, time.UTC)

	for _, f := range []domain.Frequency{domain.FrequencyWeekly, domain.FrequencyMonthly, domain.FrequencyQuarterly} {
		got, err := NextDueDate(start, f, nil)
		require.NoError(t, err)
		assert.Equal(t, day(2025, 3, 15), got, "first installment is due on the start date for %s", f)
	}
}

func TestNextDueDate_AdvancesFromLastRecord(t *testing.T) {
	start := day(2024, 1, 31)

	tests := []struct {
		name      string
		frequency domain.Frequency
		last      time.Time
		want      time.Time
	}{
		{"Weekly adds seven days", domain.FrequencyWeekly, day(2025, 2, 26), day(2025, 3, 5)},
		{"Monthly same day", domain.FrequencyMonthly, day(2025, 5, 10), day(2025, 6, 10)},
		{"Monthly Jan 31 clamps to Feb 28", domain.FrequencyMonthly, day(2025, 1, 31), day(2025, 2, 28)},
		{"Monthly Jan 31 clamps to Feb 29 in leap year", domain.FrequencyMonthly, day(2024, 1, 31), day(2024, 2, 29)},
		{"Monthly Mar 31 clamps to Apr 30", domain.FrequencyMonthly, day(2025, 3, 31), day(2025, 4, 30)},
		{"Monthly crosses year end", domain.FrequencyMonthly, day(2025, 12, 15), day(2026, 1, 15)},
		{"Quarterly Nov 30 clamps to Feb 28", domain.FrequencyQuarterly, day(2024, 11, 30), day(2025, 2, 28)},
		{"Quarterly plain", domain.FrequencyQuarterly, day(2025, 1, 10), day(2025, 4, 10)},
		{"Time of day is ignored", domain.FrequencyMonthly, time.Date(2025, 7, 4, 23, 59, 0, 0, time.UTC), day(2025, 8, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(start, tt.frequency, ptr(tt.last))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextDueDate_ClampingChainsFromLastRecord(t *testing.T) {
	// Each step only sees the previous due date, so Jan 31 -> Feb 28 -> Mar 28.
	start := day(2025, 1, 31)
	due, err := NextDueDate(start, domain.FrequencyMonthly, nil)
	require.NoError(t, err)

	var got []time.Time
	for i := 0; i < 3; i++ {
		got = append(got, due)
		due, err = NextDueDate(start, domain.FrequencyMonthly, ptr(due))
		require.NoError(t, err)
	}

	assert.Equal(t, []time.Time{day(2025, 1, 31), day(2025, 2, 28), day(2025, 3, 28)}, got)
}

func TestNextDueDate_InvalidInput(t *testing.T) {
	_, err := NextDueDate(time.Time{}, domain.FrequencyMonthly, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NextDueDate(day(2025, 1, 1), "DAILY", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddMonthsClamped_NeverOverflows(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		got := AddMonthsClamped(day(2025, m, 31), 1)
		want := m%12 + 1
		assert.Equal(t, want, got.Month(), "31 %s + 1 month must stay in the next month", m)
	}
}

func TestElapsedPeriods(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		now       time.Time
		frequency domain.Frequency
		want      int
	}{
		{"Monthly exactly three months", day(2025, 1, 15), day(2025, 4, 15), domain.FrequencyMonthly, 3},
		{"Monthly one day short", day(2025, 1, 15), day(2025, 4, 14), domain.FrequencyMonthly, 2},
		{"Monthly start on 31st, short month anniversary", day(2025, 1, 31), day(2025, 2, 28), domain.FrequencyMonthly, 1},
		{"Monthly same month", day(2025, 6, 1), day(2025, 6, 30), domain.FrequencyMonthly, 0},
		{"Weekly floors partial weeks", day(2025, 1, 1), day(2025, 1, 20), domain.FrequencyWeekly, 2},
		{"Weekly exact", day(2025, 1, 1), day(2025, 1, 29), domain.FrequencyWeekly, 4},
		{"Quarterly floors", day(2025, 1, 10), day(2025, 9, 9), domain.FrequencyQuarterly, 2},
		{"Quarterly exact", day(2025, 1, 10), day(2025, 10, 10), domain.FrequencyQuarterly, 3},
		{"Future start", day(2026, 1, 1), day(2025, 1, 1), domain.FrequencyMonthly, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedPeriods(tt.start, tt.now, tt.frequency))
		})
	}
}
