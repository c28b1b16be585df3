package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=sipledger sslmode=disable"
func NewDB(ctx context.Context, connectionString string, log zerolog.Logger) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, log: log}, nil
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// rollback is the compensation step of every multi-statement write. It is best effort:
// a failure is logged and never replaces the error that caused the rollback.
func (db *DB) rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.log.Error().Err(err).Str("op", op).Msg("rollback failed")
	}
}

const uniqueViolation = "23505"
const foreignKeyViolation = "23503"

// translate maps driver errors onto domain error kinds
func translate(op string, err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.KindNotFound, op, err, format, args...)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case uniqueViolation, foreignKeyViolation:
			return domain.WrapError(domain.KindStorageConflict, op, err, format, args...)
		}
	}
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), err)
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation
}
