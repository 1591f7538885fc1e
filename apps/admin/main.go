package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/apps/shared"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	var (
		dbx   *sqlx.DB
		db    *sql.DB
		repos shared.Repos
		err   error
	)
	if conf.Database.Engine == "memory" {
		repos = shared.DummyRepos(dummydb.Open())
	} else {
		errAndDie(database.CreateIfNotExist(conf))
		dbx, err = database.Open(conf)
		errAndDie(err)
		db = dbx.DB
		repos = shared.SQLRepos(dbx)
	}

	var rdb *redis.Client
	if shared.NeedsRedis(conf) {
		rdb, err = shared.NewRedisClient(conf)
		errAndDie(err)
	}
	locker, err := shared.NewLocker(conf, dbx, rdb, logger)
	errAndDie(err)
	broker, err := shared.NewBroker(conf, rdb)
	errAndDie(err)

	svcs := shared.NewServices(repos, shared.Infra{
		Locker: locker,
		Broker: broker,
		Mailer: emailsvc.NewConsoleService(conf, logger),
		Logger: logger,
	})
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	// start CLI
	cli := commandLine{db: db, svcs: svcs, out: os.Stdout}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Error("admin command failed", err)
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if dbx != nil {
		_ = dbx.Close()
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
