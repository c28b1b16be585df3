package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValuationPoint is one price-per-unit observation of an instrument.
// The series is maintained out of band by the daily feed sync and treated as historical truth.
type ValuationPoint struct {
	ID           uuid.UUID
	InstrumentID string
	AsOf         time.Time
	Price        decimal.Decimal
}
