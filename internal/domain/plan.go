package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is the contribution cadence of a plan
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
)

// ParseFrequency accepts the usual spellings ("monthly", "Monthly", "month").
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "week":
		return FrequencyWeekly, nil
	case "monthly", "month":
		return FrequencyMonthly, nil
	case "quarterly", "quarter":
		return FrequencyQuarterly, nil
	default:
		return "", InvalidInput("domain.ParseFrequency", "unsupported frequency %q", s)
	}
}

// Valid reports whether f is one of the supported cadences
func (f Frequency) Valid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly || f == FrequencyQuarterly
}

// Plan represents a systematic installment plan against one instrument.
type Plan struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	InstrumentID   string          // scheme code of the fund
	Amount         decimal.Decimal // configured contribution per installment
	StartDate      time.Time       // date only, first installment is due on it
	Frequency      Frequency
	Active         bool
	Units          decimal.Decimal // accumulated units, grows only on settlement
	InvestedAmount decimal.Decimal // informational, mirrors Amount; settlement never touches it
	GoalID         *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate ensures the plan adheres to domain rules
func (p *Plan) Validate() error {
	if p.UserID == uuid.Nil {
		return errors.New("plan must belong to a user")
	}
	if strings.TrimSpace(p.InstrumentID) == "" {
		return errors.New("plan must reference an instrument")
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("plan amount must be positive")
	}
	if p.StartDate.IsZero() {
		return errors.New("plan start date is required")
	}
	if !p.Frequency.Valid() {
		return errors.New("plan frequency must be WEEKLY, MONTHLY or QUARTERLY")
	}
	if p.Units.IsNegative() {
		return errors.New("plan units cannot be negative")
	}
	return nil
}

// NormalizeDate truncates t to midnight UTC of its calendar day.
// The calendar day is read in t's own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
