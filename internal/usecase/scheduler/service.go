package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/usecase/recurrence"
)

// RunSummary reports what one scheduler run did.
type RunSummary struct {
	StartedAt    time.Time
	TotalPlans   int
	Scheduled    int
	Skipped      int
	Failed       int
	Undispatched int // plans never handed to a worker because the run was cancelled
	Errors       []PlanError
}

// PlanError is a per-plan failure collected into the summary
type PlanError struct {
	PlanID  uuid.UUID
	Message string
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeScheduled
	outcomeSkipped
)

type planResult struct {
	outcome outcome
	err     error
}

// SchedulerService materializes due installments for active plans
type SchedulerService struct {
	PlanRepo   domain.PlanRepository
	LedgerRepo domain.LedgerRepository
	Log        zerolog.Logger

	// Workers bounds the worker pool. Zero means GOMAXPROCS.
	Workers int
	// Now is the clock used as the upper bound for "is an installment due yet".
	Now func() time.Time
}

// NewSchedulerService creates a new SchedulerService instance
func NewSchedulerService(planRepo domain.PlanRepository, ledgerRepo domain.LedgerRepository, log zerolog.Logger) *SchedulerService {
	return &SchedulerService{
		PlanRepo:   planRepo,
		LedgerRepo: ledgerRepo,
		Log:        log,
		Now:        time.Now,
	}
}

// Run creates at most one PENDING installment per active plan whose next due date has arrived.
// Logic:
//   - Plans are processed independently on a bounded worker pool
//   - A plan whose installment already exists (or whose insert loses the uniqueness race) is skipped
//   - A failing plan is logged and recorded in the summary; it never aborts the others
//   - When ctx is done no further plans are dispatched and the summary is returned with ctx.Err()
//
// Re-running on the same day schedules nothing new.
func (s *SchedulerService) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{StartedAt: s.now()}

	plans, err := s.PlanRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	summary.TotalPlans = len(plans)
	if len(plans) == 0 {
		return summary, nil
	}

	today := domain.NormalizeDate(summary.StartedAt)
	s.Log.Info().Int("plans", len(plans)).Time("today", today).Msg("scheduler run starting")

	numWorkers := s.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(plans) {
		numWorkers = len(plans)
	}

	work := make(chan int)
	results := make([]*planResult, len(plans))
	var wg sync.WaitGroup

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				o, err := s.schedulePlan(ctx, plans[idx], today)
				results[idx] = &planResult{outcome: o, err: err}
			}
		}()
	}

	// Feed work until every plan is dispatched or the caller gives up
	dispatched := 0
feed:
	for i := range plans {
		if ctx.Err() != nil {
			break
		}
		select {
		case work <- i:
			dispatched++
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	summary.Undispatched = len(plans) - dispatched
	for i, r := range results {
		if r == nil {
			continue
		}
		switch r.outcome {
		case outcomeScheduled:
			summary.Scheduled++
		case outcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, PlanError{PlanID: plans[i].ID, Message: r.err.Error()})
			s.Log.Error().Err(r.err).Str("plan_id", plans[i].ID.String()).Msg("failed to schedule installment")
		}
	}

	s.Log.Info().
		Int("total", summary.TotalPlans).
		Int("scheduled", summary.Scheduled).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("undispatched", summary.Undispatched).
		Dur("elapsed", s.now().Sub(summary.StartedAt)).
		Msg("scheduler run finished")

	return summary, ctx.Err()
}

// schedulePlan decides whether plan has a due installment and inserts it.
func (s *SchedulerService) schedulePlan(ctx context.Context, plan *domain.Plan, today time.Time) (outcome, error) {
	var lastDue *time.Time
	last, err := s.LedgerRepo.LatestByType(ctx, plan.ID, domain.RecordTypeInstallment)
	switch {
	case err == nil:
		lastDue = &last.DueDate
	case !errors.Is(err, domain.ErrNotFound):
		return outcomeFailed, err
	}

	nextDue, err := recurrence.NextDueDate(plan.StartDate, plan.Frequency, lastDue)
	if err != nil {
		return outcomeFailed, err
	}

	if lastDue != nil && !domain.NormalizeDate(*lastDue).Before(nextDue) {
		return outcomeSkipped, nil
	}
	if nextDue.After(today) {
		return outcomeSkipped, nil
	}

	// Re-check right before inserting; another run may have created it meanwhile
	if _, err := s.LedgerRepo.FindPendingForDate(ctx, plan.ID, nextDue); err == nil {
		return outcomeSkipped, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return outcomeFailed, err
	}

	now := s.now().UTC()
	record := &domain.LedgerRecord{
		ID:        uuid.New(),
		PlanID:    plan.ID,
		Type:      domain.RecordTypeInstallment,
		Amount:    plan.Amount,
		DueDate:   nextDue,
		State:     domain.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := record.Validate(); err != nil {
		return outcomeFailed, domain.WrapError(domain.KindInvalidInput, "scheduler.Run", err, "plan %s", plan.ID)
	}

	if err := s.LedgerRepo.CreatePending(ctx, record); err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			// Lost the race to a concurrent run; the installment exists
			return outcomeSkipped, nil
		}
		return outcomeFailed, err
	}

	s.Log.Debug().
		Str("plan_id", plan.ID.String()).
		Str("record_id", record.ID.String()).
		Str("due_date", nextDue.Format(time.DateOnly)).
		Msg("installment scheduled")
	return outcomeScheduled, nil
}

func (s *SchedulerService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
