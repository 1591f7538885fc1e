// Package sqlxrepos implements the core repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func get(ctx context.Context, db sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, db, dest, q, args...)
}

func selectAll(ctx context.Context, db sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, db, dest, q, args...)
}

func exec(ctx context.Context, db sqlx.ExecerContext, b sq.Sqlizer) (int, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// notFound maps sql.ErrNoRows to `nf`.
func notFound(err, nf error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return nf
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// duplicate turns a unique constraint violation into a validation error on `field`.
func duplicate(err error, field string) error {
	if isUniqueViolation(err) {
		return core.NewValidationError(err, core.FieldError{Field: field, Error: "already exists"})
	}
	return err
}

// withTx runs `fn` in a transaction, rolled back when `fn` fails.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func orderBy(b sq.SelectBuilder, ordering []core.DBOrdering, fallback string) sq.SelectBuilder {
	if len(ordering) == 0 {
		return b.OrderBy(fallback)
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}
	return b
}
