package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

const ledgerColumns = `id, plan_id, record_type, amount, due_date, state, price, units, created_at, updated_at`

func scanLedgerRecord(row rowScanner) (*domain.LedgerRecord, error) {
	var record domain.LedgerRecord
	var amountStr string
	var priceStr, unitsStr sql.NullString

	err := row.Scan(
		&record.ID,
		&record.PlanID,
		&record.Type,
		&amountStr,
		&record.DueDate,
		&record.State,
		&priceStr,
		&unitsStr,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if record.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if record.Price, err = parseNullDecimal(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	if record.Units, err = parseNullDecimal(unitsStr); err != nil {
		return nil, fmt.Errorf("failed to parse units: %w", err)
	}
	record.DueDate = domain.NormalizeDate(record.DueDate)

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

// GetByID retrieves a ledger record by its ID
func (r *ledgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerRecord, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_records WHERE id = $1`

	record, err := scanLedgerRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate("ledger.GetByID", err, "ledger record %s not found", id)
	}
	return record, nil
}

// LatestByType retrieves the latest record of a type for a plan
func (r *ledgerRepository) LatestByType(ctx context.Context, planID uuid.UUID, recordType domain.RecordType) (*domain.LedgerRecord, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_records
		WHERE plan_id = $1 AND record_type = $2
		ORDER BY due_date DESC
		LIMIT 1
	`

	record, err := scanLedgerRecord(r.db.QueryRowContext(ctx, query, planID, string(recordType)))
	if err != nil {
		return nil, translate("ledger.LatestByType", err, "no %s record for plan %s", recordType, planID)
	}
	return record, nil
}

// FindPendingForDate retrieves the pending record of a plan due on a date
func (r *ledgerRepository) FindPendingForDate(ctx context.Context, planID uuid.UUID, dueDate time.Time) (*domain.LedgerRecord, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_records
		WHERE plan_id = $1 AND due_date = $2 AND state = 'PENDING'
	`

	due := domain.NormalizeDate(dueDate)
	record, err := scanLedgerRecord(r.db.QueryRowContext(ctx, query, planID, due))
	if err != nil {
		return nil, translate("ledger.FindPendingForDate", err, "no pending record for plan %s on %s", planID, due.Format(time.DateOnly))
	}
	return record, nil
}

// CreatePending inserts a new pending record
func (r *ledgerRepository) CreatePending(ctx context.Context, record *domain.LedgerRecord) error {
	query := `
		INSERT INTO ledger_records (id, plan_id, record_type, amount, due_date, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.PlanID,
		string(record.Type),
		record.Amount.String(),
		domain.NormalizeDate(record.DueDate),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return domain.WrapError(domain.KindNotFound, "ledger.CreatePending", err, "plan %s not found", record.PlanID)
	}
	if err != nil {
		return translate("ledger.CreatePending", err, "installment for plan %s on %s already exists",
			record.PlanID, record.DueDate.Format(time.DateOnly))
	}
	record.State = domain.StatePending

	return nil
}

// UpdateState moves a record between states when it is still in the from state
func (r *ledgerRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to domain.RecordState) (*domain.LedgerRecord, error) {
	const op = "ledger.UpdateState"
	query := `
		UPDATE ledger_records
		SET state = $3, updated_at = $4
		WHERE id = $1 AND state = $2
		RETURNING ` + ledgerColumns

	record, err := scanLedgerRecord(r.db.QueryRowContext(ctx, query, id, string(from), string(to), nowUTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missedTransition(ctx, op, id, from)
	}
	if err != nil {
		return nil, translate(op, err, "failed to update record %s", id)
	}
	return record, nil
}

// MarkPaid settles a pending record and credits its units to the plan in one transaction
func (r *ledgerRepository) MarkPaid(ctx context.Context, id uuid.UUID, price, units decimal.Decimal) (*domain.LedgerRecord, *domain.Plan, error) {
	const op = "ledger.MarkPaid"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer r.db.rollback(tx, op)

	now := nowUTC()

	// The state guard makes concurrent settlements of the same record race on this row;
	// exactly one of them sees it PENDING.
	record, err := scanLedgerRecord(tx.QueryRowContext(ctx, `
		UPDATE ledger_records
		SET state = 'PAID', price = $2, units = $3, updated_at = $4
		WHERE id = $1 AND state = 'PENDING'
		RETURNING `+ledgerColumns,
		id, price.String(), units.String(), now,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, r.missedTransition(ctx, op, id, domain.StatePending)
	}
	if err != nil {
		return nil, nil, translate(op, err, "failed to settle record %s", id)
	}

	plan, err := scanPlan(tx.QueryRowContext(ctx, `
		UPDATE plans
		SET units = units + $2, updated_at = $3
		WHERE id = $1
		RETURNING `+planColumns,
		record.PlanID, units.String(), now,
	))
	if err != nil {
		return nil, nil, translate(op, err, "failed to credit units to plan %s", record.PlanID)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return record, plan, nil
}

// ListByPlan retrieves all records of a plan by due date
func (r *ledgerRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.LedgerRecord, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_records WHERE plan_id = $1 ORDER BY due_date ASC`

	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, translate("ledger.ListByPlan", err, "failed to query records of plan %s", planID)
	}
	defer rows.Close()

	var records []*domain.LedgerRecord
	for rows.Next() {
		record, err := scanLedgerRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger records: %w", err)
	}

	return records, nil
}

// missedTransition tells a missing record apart from one that already left the from state.
func (r *ledgerRepository) missedTransition(ctx context.Context, op string, id uuid.UUID, from domain.RecordState) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.NewError(domain.KindStorageConflict, op, "record %s is no longer %s", id, from)
}
