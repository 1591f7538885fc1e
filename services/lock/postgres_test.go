package locksvc

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func TestPostgresLocker_cancelled(t *testing.T) {
	// sqlx.Open does not connect
	db, err := sqlx.Open("postgres", "postgres://shule@localhost:1/shule?sslmode=disable")
	require.NoError(t, err)
	defer db.Close()

	var locker core.Locker = NewPostgresLocker(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	unlock, err := locker.Lock(ctx, "schedule:s1:Monday")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, unlock)
}
