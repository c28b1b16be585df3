package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

type ledgerRepository struct {
	store *Store
}

const ledgerColumns = `id, plan_id, record_type, amount, due_date, state, price, units, created_at, updated_at`

func scanLedgerRecord(row rowScanner) (*domain.LedgerRecord, error) {
	var record domain.LedgerRecord
	var amountStr, dueStr, createdStr, updatedStr string
	var priceStr, unitsStr sql.NullString

	err := row.Scan(
		&record.ID,
		&record.PlanID,
		&record.Type,
		&amountStr,
		&dueStr,
		&record.State,
		&priceStr,
		&unitsStr,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return nil, err
	}

	if record.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}
	if record.DueDate, err = parseDate(dueStr); err != nil {
		return nil, fmt.Errorf("parsing due_date: %w", err)
	}
	if record.Price, err = parseNullDecimal(priceStr); err != nil {
		return nil, fmt.Errorf("parsing price: %w", err)
	}
	if record.Units, err = parseNullDecimal(unitsStr); err != nil {
		return nil, fmt.Errorf("parsing units: %w", err)
	}
	if record.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if record.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &record, nil
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func getRecord(ctx context.Context, q queryer, id uuid.UUID) (*domain.LedgerRecord, error) {
	record, err := scanLedgerRecord(q.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_records WHERE id = ?`, id.String()))
	if err != nil {
		return nil, translate("ledger.GetByID", err, "ledger record %s not found", id)
	}
	return record, nil
}

func (r *ledgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerRecord, error) {
	return getRecord(ctx, r.store.db, id)
}

func (r *ledgerRepository) LatestByType(ctx context.Context, planID uuid.UUID, recordType domain.RecordType) (*domain.LedgerRecord, error) {
	record, err := scanLedgerRecord(r.store.db.QueryRowContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_records
		WHERE plan_id = ? AND record_type = ?
		ORDER BY due_date DESC
		LIMIT 1`,
		planID.String(), string(recordType),
	))
	if err != nil {
		return nil, translate("ledger.LatestByType", err, "no %s record for plan %s", recordType, planID)
	}
	return record, nil
}

func (r *ledgerRepository) FindPendingForDate(ctx context.Context, planID uuid.UUID, dueDate time.Time) (*domain.LedgerRecord, error) {
	due := formatDate(dueDate)
	record, err := scanLedgerRecord(r.store.db.QueryRowContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_records
		WHERE plan_id = ? AND due_date = ? AND state = 'PENDING'`,
		planID.String(), due,
	))
	if err != nil {
		return nil, translate("ledger.FindPendingForDate", err, "no pending record for plan %s on %s", planID, due)
	}
	return record, nil
}

func (r *ledgerRepository) CreatePending(ctx context.Context, record *domain.LedgerRecord) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO ledger_records (id, plan_id, record_type, amount, due_date, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'PENDING', ?, ?)`,
		record.ID.String(),
		record.PlanID.String(),
		string(record.Type),
		record.Amount.String(),
		formatDate(record.DueDate),
		formatTimestamp(record.CreatedAt),
		formatTimestamp(record.UpdatedAt),
	)
	if isForeignKeyViolation(err) {
		return domain.WrapError(domain.KindNotFound, "ledger.CreatePending", err, "plan %s not found", record.PlanID)
	}
	if err != nil {
		return translate("ledger.CreatePending", err, "installment for plan %s on %s already exists",
			record.PlanID, formatDate(record.DueDate))
	}
	record.State = domain.StatePending
	return nil
}

func (r *ledgerRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to domain.RecordState) (*domain.LedgerRecord, error) {
	const op = "ledger.UpdateState"

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: beginning transaction: %w", op, err)
	}
	defer r.store.rollback(tx, op)

	if err := guardState(ctx, tx, op, id, from); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger_records SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(to), formatTimestamp(nowUTC()), id.String(), string(from),
	); err != nil {
		return nil, translate(op, err, "failed to update record %s", id)
	}

	record, err := getRecord(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: committing: %w", op, err)
	}
	return record, nil
}

func (r *ledgerRepository) MarkPaid(ctx context.Context, id uuid.UUID, price, units decimal.Decimal) (*domain.LedgerRecord, *domain.Plan, error) {
	const op = "ledger.MarkPaid"

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: beginning transaction: %w", op, err)
	}
	defer r.store.rollback(tx, op)

	if err := guardState(ctx, tx, op, id, domain.StatePending); err != nil {
		return nil, nil, err
	}

	now := formatTimestamp(nowUTC())
	if _, err := tx.ExecContext(ctx, `
		UPDATE ledger_records
		SET state = 'PAID', price = ?, units = ?, updated_at = ?
		WHERE id = ? AND state = 'PENDING'`,
		price.String(), units.String(), now, id.String(),
	); err != nil {
		return nil, nil, translate(op, err, "failed to settle record %s", id)
	}

	record, err := getRecord(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	plan, err := getPlan(ctx, tx, record.PlanID)
	if err != nil {
		return nil, nil, err
	}

	// Units are TEXT, so the addition happens in decimal rather than in SQL.
	plan.Units = plan.Units.Add(units)
	if _, err := tx.ExecContext(ctx,
		`UPDATE plans SET units = ?, updated_at = ? WHERE id = ?`,
		plan.Units.String(), now, plan.ID.String(),
	); err != nil {
		return nil, nil, translate(op, err, "failed to credit units to plan %s", plan.ID)
	}
	plan.UpdatedAt, _ = parseTimestamp(now)

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: committing: %w", op, err)
	}
	return record, plan, nil
}

func (r *ledgerRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.LedgerRecord, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_records WHERE plan_id = ? ORDER BY due_date ASC`, planID.String())
	if err != nil {
		return nil, translate("ledger.ListByPlan", err, "failed to query records of plan %s", planID)
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.LedgerRecord
	for rows.Next() {
		record, err := scanLedgerRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger.ListByPlan: scanning record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// guardState fails unless the record exists and is still in the expected state.
func guardState(ctx context.Context, tx *sql.Tx, op string, id uuid.UUID, want domain.RecordState) error {
	var state string
	err := tx.QueryRowContext(ctx, `SELECT state FROM ledger_records WHERE id = ?`, id.String()).Scan(&state)
	if err != nil {
		return translate(op, err, "ledger record %s not found", id)
	}
	if domain.RecordState(state) != want {
		return domain.NewError(domain.KindStorageConflict, op, "record %s is no longer %s", id, want)
	}
	return nil
}
