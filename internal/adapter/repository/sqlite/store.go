// Package sqlite provides a single-file SQLite implementation of the repositories,
// selected by the server's "sqlite" database driver and used by tests that need real transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// Timestamps are stored fixed-width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store owns the database handle shared by the repositories.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One writer at a time. Every statement inside a transaction must go through the tx,
	// a second connection would never be handed out.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Plans returns the plan repository backed by this store.
func (s *Store) Plans() domain.PlanRepository { return &planRepository{store: s} }

// Ledger returns the ledger repository backed by this store.
func (s *Store) Ledger() domain.LedgerRepository { return &ledgerRepository{store: s} }

// Valuations returns the valuation repository backed by this store.
func (s *Store) Valuations() domain.ValuationRepository { return &valuationRepository{store: s} }

// Notifications returns the notification repository backed by this store.
func (s *Store) Notifications() domain.NotificationRepository {
	return &notificationRepository{store: s}
}

func (s *Store) rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Error().Err(err).Str("op", op).Msg("rollback failed")
	}
}

// translate maps driver errors onto domain error kinds
func translate(op string, err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.KindNotFound, op, err, format, args...)
	}
	switch errorCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return domain.WrapError(domain.KindStorageConflict, op, err, format, args...)
	}
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), err)
}

// errorCode returns the extended result code of a driver error, or 0.
func errorCode(err error) int {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func isForeignKeyViolation(err error) bool {
	return errorCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func formatDate(t time.Time) string {
	return domain.NormalizeDate(t).Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func nowUTC() time.Time { return time.Now().UTC() }
