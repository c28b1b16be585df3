package tracking

import (
	"time"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/usecase/recurrence"
)

// Status is the health label of a plan
type Status string

const (
	StatusOnTrack  Status = "ON_TRACK"
	StatusDelayed  Status = "DELAYED"
	StatusOffTrack Status = "OFF_TRACK"
	StatusFailed   Status = "FAILED"
)

// Health compares the installments a plan should have had with what the ledger holds.
type Health struct {
	ExpectedPeriods int
	PaidPeriods     int
	PendingPeriods  int
	FailedPeriods   int // FAILED and SKIPPED records
	MissingPeriods  int
	Status          Status
}

// Classify derives a plan's health from its ledger records.
// Logic:
//   - expected = max(1, whole periods elapsed since the start date)
//   - missing = max(0, expected - paid - pending)
//   - 0 missing: ON_TRACK, 1: DELAYED, 2 or more: OFF_TRACK
//   - any FAILED or SKIPPED installment overrides the result with FAILED
//
// Records of other types are ignored.
func Classify(plan *domain.Plan, records []*domain.LedgerRecord, now time.Time) (*Health, error) {
	const op = "tracking.Classify"

	if plan == nil {
		return nil, domain.InvalidInput(op, "plan is required")
	}
	if plan.StartDate.IsZero() {
		return nil, domain.InvalidInput(op, "plan %s has no start date", plan.ID)
	}
	if now.IsZero() {
		return nil, domain.InvalidInput(op, "current time is required")
	}
	if !plan.Frequency.Valid() {
		return nil, domain.InvalidInput(op, "unsupported frequency %q", plan.Frequency)
	}

	h := &Health{
		ExpectedPeriods: max(1, recurrence.ElapsedPeriods(plan.StartDate, now, plan.Frequency)),
	}

	for _, r := range records {
		if r.Type != domain.RecordTypeInstallment {
			continue
		}
		switch r.State {
		case domain.StatePaid:
			h.PaidPeriods++
		case domain.StatePending:
			h.PendingPeriods++
		case domain.StateFailed, domain.StateSkipped:
			h.FailedPeriods++
		}
	}

	h.MissingPeriods = max(0, h.ExpectedPeriods-h.PaidPeriods-h.PendingPeriods)

	switch {
	case h.FailedPeriods > 0:
		h.Status = StatusFailed
	case h.MissingPeriods == 0:
		h.Status = StatusOnTrack
	case h.MissingPeriods == 1:
		h.Status = StatusDelayed
	default:
		h.Status = StatusOffTrack
	}

	return h, nil
}
