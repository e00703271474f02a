package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore runs each unit of work in a READ COMMITTED transaction.
// Aggregates are serialised with transaction-scoped advisory locks taken
// before the aggregate is read, so every read after Lock sees committed state.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open *sql.DB (see common/database).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

// DB exposes the underlying handle for migrations.
func (s *PostgresStore) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: true}, fn)
}

func (s *PostgresStore) run(ctx context.Context, opts *sql.TxOptions, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type pgTx struct {
	tx *sqlx.Tx
	// tailLocked is set once the tx holds the event log lock.
	tailLocked bool
}

var _ Tx = (*pgTx)(nil)

const lockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

func (t *pgTx) Lock(ctx context.Context, key string) error {
	if _, err := t.tx.ExecContext(ctx, lockQuery, key); err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return nil
}

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"
)

// translate maps driver errors onto the domain taxonomy.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("%s", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return &domain.Error{Kind: domain.KindConflict, Detail: what, Err: err}
		case pgInvalidTextRepr:
			// a malformed uuid names no row
			return domain.NotFoundf("%s", what)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// mustAffect turns a zero-row update or delete into NotFound.
func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return domain.NotFoundf("%s", what)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
