package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// planRepository implements domain.PlanRepository
type planRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *DB) domain.PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `id, user_id, instrument_id, amount, start_date, frequency, active, units, invested_amount, goal_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.Plan, error) {
	var plan domain.Plan
	var amountStr, unitsStr, investedStr string
	var goalID uuid.NullUUID

	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.InstrumentID,
		&amountStr,
		&plan.StartDate,
		&plan.Frequency,
		&plan.Active,
		&unitsStr,
		&investedStr,
		&goalID,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Parse DECIMAL columns
	if plan.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if plan.Units, err = decimal.NewFromString(unitsStr); err != nil {
		return nil, fmt.Errorf("failed to parse units: %w", err)
	}
	if plan.InvestedAmount, err = decimal.NewFromString(investedStr); err != nil {
		return nil, fmt.Errorf("failed to parse invested_amount: %w", err)
	}

	if goalID.Valid {
		id := goalID.UUID
		plan.GoalID = &id
	}
	plan.StartDate = domain.NormalizeDate(plan.StartDate)

	return &plan, nil
}

// GetByID retrieves a plan by its ID
func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate("plans.GetByID", err, "plan %s not found", id)
	}
	return plan, nil
}

// Create creates a new plan
func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	query := `
		INSERT INTO plans (id, user_id, instrument_id, amount, start_date, frequency, active, units, invested_amount, goal_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.UserID,
		plan.InstrumentID,
		plan.Amount.String(),
		domain.NormalizeDate(plan.StartDate),
		string(plan.Frequency),
		plan.Active,
		plan.Units.String(),
		plan.InvestedAmount.String(),
		nullableUUID(plan.GoalID),
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return translate("plans.Create", err, "failed to create plan %s", plan.ID)
	}

	return nil
}

// Update persists the editable fields of a plan
func (r *planRepository) Update(ctx context.Context, plan *domain.Plan) error {
	query := `
		UPDATE plans
		SET amount = $2, frequency = $3, active = $4, invested_amount = $5, goal_id = $6, updated_at = $7
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.Amount.String(),
		string(plan.Frequency),
		plan.Active,
		plan.InvestedAmount.String(),
		nullableUUID(plan.GoalID),
		plan.UpdatedAt,
	)
	if err != nil {
		return translate("plans.Update", err, "failed to update plan %s", plan.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindNotFound, "plans.Update", "plan %s not found", plan.ID)
	}

	return nil
}

// Delete removes a plan that no ledger record references
func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		// ON DELETE RESTRICT surfaces as a foreign key violation
		return translate("plans.Delete", err, "plan %s is referenced by ledger records", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindNotFound, "plans.Delete", "plan %s not found", id)
	}
	return nil
}

// ListActive retrieves every active plan
func (r *planRepository) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE active ORDER BY created_at ASC`
	return r.list(ctx, "plans.ListActive", query)
}

// ListByUser retrieves all plans owned by a user, newest first
func (r *planRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, "plans.ListByUser", query, userID)
}

func (r *planRepository) list(ctx context.Context, op, query string, args ...any) ([]*domain.Plan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(op, err, "failed to query plans")
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func nowUTC() time.Time { return time.Now().UTC() }
