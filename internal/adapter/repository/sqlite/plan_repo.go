package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

type planRepository struct {
	store *Store
}

const planColumns = `id, user_id, instrument_id, amount, start_date, frequency, active, units, invested_amount, goal_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.Plan, error) {
	var plan domain.Plan
	var amountStr, startStr, unitsStr, investedStr, createdStr, updatedStr string
	var goalID uuid.NullUUID

	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.InstrumentID,
		&amountStr,
		&startStr,
		&plan.Frequency,
		&plan.Active,
		&unitsStr,
		&investedStr,
		&goalID,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return nil, err
	}

	if plan.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}
	if plan.Units, err = decimal.NewFromString(unitsStr); err != nil {
		return nil, fmt.Errorf("parsing units: %w", err)
	}
	if plan.InvestedAmount, err = decimal.NewFromString(investedStr); err != nil {
		return nil, fmt.Errorf("parsing invested_amount: %w", err)
	}
	if plan.StartDate, err = parseDate(startStr); err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	if plan.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if plan.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if goalID.Valid {
		id := goalID.UUID
		plan.GoalID = &id
	}

	return &plan, nil
}

func getPlan(ctx context.Context, q queryer, id uuid.UUID) (*domain.Plan, error) {
	plan, err := scanPlan(q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id.String()))
	if err != nil {
		return nil, translate("plans.GetByID", err, "plan %s not found", id)
	}
	return plan, nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return getPlan(ctx, r.store.db, id)
}

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO plans (id, user_id, instrument_id, amount, start_date, frequency, active, units, invested_amount, goal_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID.String(),
		plan.UserID.String(),
		plan.InstrumentID,
		plan.Amount.String(),
		formatDate(plan.StartDate),
		string(plan.Frequency),
		plan.Active,
		plan.Units.String(),
		plan.InvestedAmount.String(),
		nullableUUID(plan.GoalID),
		formatTimestamp(plan.CreatedAt),
		formatTimestamp(plan.UpdatedAt),
	)
	if err != nil {
		return translate("plans.Create", err, "failed to create plan %s", plan.ID)
	}
	return nil
}

func (r *planRepository) Update(ctx context.Context, plan *domain.Plan) error {
	res, err := r.store.db.ExecContext(ctx, `
		UPDATE plans
		SET amount = ?, frequency = ?, active = ?, invested_amount = ?, goal_id = ?, updated_at = ?
		WHERE id = ?`,
		plan.Amount.String(),
		string(plan.Frequency),
		plan.Active,
		plan.InvestedAmount.String(),
		nullableUUID(plan.GoalID),
		formatTimestamp(plan.UpdatedAt),
		plan.ID.String(),
	)
	if err != nil {
		return translate("plans.Update", err, "failed to update plan %s", plan.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindNotFound, "plans.Update", "plan %s not found", plan.ID)
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id.String())
	if err != nil {
		return translate("plans.Delete", err, "plan %s is referenced by ledger records", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindNotFound, "plans.Delete", "plan %s not found", id)
	}
	return nil
}

func (r *planRepository) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	return r.list(ctx, "plans.ListActive", `SELECT `+planColumns+` FROM plans WHERE active = 1 ORDER BY created_at ASC`)
}

func (r *planRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Plan, error) {
	return r.list(ctx, "plans.ListByUser", `SELECT `+planColumns+` FROM plans WHERE user_id = ? ORDER BY created_at DESC`, userID.String())
}

func (r *planRepository) list(ctx context.Context, op, query string, args ...any) ([]*domain.Plan, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(op, err, "failed to query plans")
	}
	defer func() { _ = rows.Close() }()

	var plans []*domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scanning plan: %w", op, err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
