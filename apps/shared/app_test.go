package shared_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/apps/shared"
	"github.com/trezcool/shule/core"
	locksvc "github.com/trezcool/shule/services/lock"
	"github.com/trezcool/shule/services/pubsub"
	"github.com/trezcool/shule/tests"
)

func TestNewLocker(t *testing.T) {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()
	db := sqlx.NewDb(nil, "postgres")

	tests := []struct {
		backend string
		db      *sqlx.DB
		rdb     *redis.Client
		want    core.Locker
		wantErr bool
	}{
		{backend: "", want: &locksvc.LocalLocker{}},
		{backend: "local", want: &locksvc.LocalLocker{}},
		{backend: "redis", rdb: rdb, want: &locksvc.RedisLocker{}},
		{backend: "redis", wantErr: true},
		{backend: "postgres", db: db, want: &locksvc.PostgresLocker{}},
		{backend: "postgres", rdb: rdb, wantErr: true},
		{backend: "zookeeper", db: db, rdb: rdb, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			conf.LockBackend = tt.backend
			locker, err := shared.NewLocker(conf, tt.db, tt.rdb, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, locker)
		})
	}
}

func TestNewBroker(t *testing.T) {
	conf := core.NewTestConfig()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	conf.BrokerBackend = "local"
	broker, err := shared.NewBroker(conf, nil)
	require.NoError(t, err)
	assert.IsType(t, &pubsub.LocalBroker{}, broker)

	conf.BrokerBackend = "redis"
	_, err = shared.NewBroker(conf, nil)
	assert.Error(t, err)
	broker, err = shared.NewBroker(conf, rdb)
	require.NoError(t, err)
	assert.IsType(t, &pubsub.RedisBroker{}, broker)

	conf.BrokerBackend = "kafka"
	_, err = shared.NewBroker(conf, rdb)
	assert.Error(t, err)
}

func TestNeedsRedis(t *testing.T) {
	conf := core.NewTestConfig()
	assert.False(t, shared.NeedsRedis(conf))
	conf.BrokerBackend = "redis"
	assert.True(t, shared.NeedsRedis(conf))
	conf.BrokerBackend, conf.LockBackend = "local", "redis"
	assert.True(t, shared.NeedsRedis(conf))
}
