package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/eduadmin/internal/db"
	"github.com/yigit/eduadmin/internal/pkg/dberrors"
	"github.com/yigit/eduadmin/internal/pkg/logger"
)

const maxTxAttempts = 3

// PostgresStore is the Store backed by PostgreSQL
type PostgresStore struct {
	db *db.PostgresDB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{db: database}
}

// WithTx runs fn in a transaction. Deadlocks and serialization failures
// are retried with a fresh transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn TxFn) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return fn(ctx, newPgQueries(tx))
		})
		if err == nil || !dberrors.IsRetryable(err) {
			return err
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Retrying transaction after lock conflict")
	}
	return err
}

var _ Queries = (*pgQueries)(nil)

// pgQueries implements Queries on top of one pgx transaction
type pgQueries struct {
	tx pgx.Tx
	sb squirrel.StatementBuilderType
}

func newPgQueries(tx pgx.Tx) *pgQueries {
	return &pgQueries{
		tx: tx,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Savepoint runs fn inside a nested transaction
func (q *pgQueries) Savepoint(ctx context.Context, fn TxFn) error {
	return db.WithSavepoint(ctx, q.tx, func(ctx context.Context, sp pgx.Tx) error {
		return fn(ctx, newPgQueries(sp))
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

// exec runs a write and returns ErrNotFound when it touched no row
func (q *pgQueries) exec(ctx context.Context, b squirrel.Sqlizer, op string) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}
	tag, err := q.tx.Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// execAny runs a write that may legitimately touch no rows
func (q *pgQueries) execAny(ctx context.Context, b squirrel.Sqlizer, op string) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}
	if _, err := q.tx.Exec(ctx, sql, args...); err != nil {
		return translateError(err, op)
	}
	return nil
}

// queryRow runs b and hands the single row to scan
func (q *pgQueries) queryRow(ctx context.Context, b squirrel.Sqlizer, op string, scan func(rowScanner) error) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}
	if err := scan(q.tx.QueryRow(ctx, sql, args...)); err != nil {
		return translateError(err, op)
	}
	return nil
}

// queryAll runs b and collects every row through scan
func queryAll[T any](ctx context.Context, q *pgQueries, b squirrel.Sqlizer, op string, scan func(rowScanner) (T, error)) ([]T, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	rows, err := q.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateError(err, op)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, op)
	}
	return out, nil
}

// translateError maps driver errors onto repository errors
func translateError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && dberrors.IsUniqueViolation(err) {
		return &UniqueViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}
	if dberrors.IsInvalidText(err) {
		// a malformed id cannot name a stored row
		return ErrNotFound
	}
	if dberrors.IsRetryable(err) {
		return err
	}
	logger.Error().Err(err).Str("op", op).Msg("Database query failed")
	return fmt.Errorf("error executing %s: %w", op, err)
}
