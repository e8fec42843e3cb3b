// Package store owns the sqlite connection pool, schema migrations and the
// transaction scope helper every mutating component runs under.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pitunes/internal/prng"
	"pitunes/pkg/models"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const (
	txRetries    = 3
	idRetries    = 3
	retryBackoff = 50 * time.Millisecond
)

// Store wraps a *sql.DB for the single embedded database file. Safe for
// concurrent use; transaction-scoped connections are exclusively owned for
// the duration of WithTx.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// Open opens (or creates) the database, applies pragmas and pool limits,
// runs pending migrations forward-only and seeds the id generator row.
// Caller should Close() when finished.
func Open(dbPath string) (*Store, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Pragmas ride in the DSN so the driver applies them to every pooled
	// connection; a plain Exec would only ever configure one.
	// _txlock=immediate makes write transactions take the write lock at
	// BEGIN, so concurrent mutations queue instead of deadlocking on lock
	// upgrade. SQLite transactions are serializable.
	dsn := dbPath + "?cache=shared&mode=rwc&_txlock=immediate" +
		"&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	s := &Store{conn: conn, logger: logger}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := prng.Seed(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to seed id generator: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized")
	return s, nil
}

// DB exposes the pool for read paths that do not need transaction scope.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// WithTx runs f inside a transaction. f's nil return commits; any error
// rolls back and is returned unchanged. Busy/locked begin errors are retried
// with bounded backoff, then surfaced as models.ErrStoreUnavailable.
func (s *Store) WithTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	var tx *sql.Tx
	var err error
	for attempt := 0; ; attempt++ {
		tx, err = s.conn.BeginTx(ctx, nil)
		if err == nil {
			break
		}
		if attempt >= txRetries || !isBusy(err) {
			return fmt.Errorf("%w: begin: %v", models.ErrStoreUnavailable, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}

	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WithError(rbErr).Error("Rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: commit: %v", models.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AllocateID draws fresh ids from the persisted generator and calls insert
// with each until one sticks. Collisions with existing primary keys are
// possible by design; after idRetries conflicts the caller gets
// models.ErrConflict. Other insert errors surface unchanged.
func AllocateID(tx *sql.Tx, insert func(id int32) error) (int32, error) {
	for attempt := 0; attempt < idRetries; attempt++ {
		id, err := prng.NextID(tx)
		if err != nil {
			return 0, err
		}
		err = insert(id)
		if err == nil {
			return id, nil
		}
		if !IsPrimaryKeyConflict(err) {
			return 0, err
		}
	}
	return 0, models.ErrConflict
}

// IsPrimaryKeyConflict reports whether err is a sqlite primary-key
// constraint violation. The id generator's callers retry on it.
func IsPrimaryKeyConflict(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyViolation reports whether err is a sqlite foreign-key
// constraint violation, i.e. a reference to a row that does not exist.
func IsForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.conn.Close()
}
