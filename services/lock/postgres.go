package locksvc

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// PostgresLocker holds session advisory locks on a dedicated connection per lock.
type PostgresLocker struct {
	db     *sqlx.DB
	logger core.Logger
}

var _ core.Locker = (*PostgresLocker)(nil)

func NewPostgresLocker(db *sqlx.DB, logger core.Logger) *PostgresLocker {
	return &PostgresLocker{db: db, logger: logger}
}

func (l *PostgresLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.db.DB.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting connection")
	}
	// blocks until acquired; cancelling ctx cancels the query
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1))", key); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "locking %s", key)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
			l.logger.Error("releasing lock "+key, err)
		}
		_ = conn.Close()
	}, nil
}
