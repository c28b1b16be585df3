package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordType distinguishes ledger records. Only installments are produced today.
type RecordType string

const (
	RecordTypeInstallment RecordType = "INSTALLMENT"
)

// RecordState is the lifecycle state of a ledger record
type RecordState string

const (
	StatePending RecordState = "PENDING"
	StatePaid    RecordState = "PAID"
	StateFailed  RecordState = "FAILED"
	StateSkipped RecordState = "SKIPPED"
)

// ParseRecordState validates a state coming from outside the process.
func ParseRecordState(s string) (RecordState, error) {
	st := RecordState(s)
	switch st {
	case StatePending, StatePaid, StateFailed, StateSkipped:
		return st, nil
	}
	return "", InvalidInput("domain.ParseRecordState", "unknown record state %q", s)
}

// Terminal reports whether no user-facing transition leaves s.
func (s RecordState) Terminal() bool {
	return s == StatePaid || s == StateFailed || s == StateSkipped
}

// CanTransition reports whether from -> to is a user-facing transition.
// Same-state requests are handled as no-ops before this check.
func CanTransition(from, to RecordState) bool {
	return from == StatePending && to.Terminal()
}

// LedgerRecord is one installment occurrence of a plan.
type LedgerRecord struct {
	ID        uuid.UUID
	PlanID    uuid.UUID
	Type      RecordType
	Amount    decimal.Decimal
	DueDate   time.Time // date only
	State     RecordState
	Price     *decimal.Decimal // price used on settlement, nil unless PAID
	Units     *decimal.Decimal // units bought on settlement, nil unless PAID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the record adheres to domain rules
func (r *LedgerRecord) Validate() error {
	if r.PlanID == uuid.Nil {
		return errors.New("ledger record must reference a plan")
	}
	if r.Type != RecordTypeInstallment {
		return errors.New("ledger record type must be INSTALLMENT")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("ledger record amount must be positive")
	}
	if r.DueDate.IsZero() {
		return errors.New("ledger record due date is required")
	}
	if _, err := ParseRecordState(string(r.State)); err != nil {
		return err
	}
	return nil
}
