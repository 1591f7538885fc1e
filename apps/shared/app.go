// Package shared wires the repositories and services used by the API and the admin CLI.
package shared

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/payment"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	locksvc "github.com/trezcool/shule/services/lock"
	"github.com/trezcool/shule/services/pubsub"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

type Repos struct {
	Users         user.Repository
	Schools       school.Repository
	Courses       course.Repository
	Attendance    attendance.Repository
	Grades        grade.Repository
	Payments      payment.Repository
	Reports       report.Repository
	Notifications notification.Repository
}

// SQLRepos returns the repositories backed by PostgreSQL.
func SQLRepos(db *sqlx.DB) Repos {
	return Repos{
		Users:         sqlxrepos.NewUserRepository(db),
		Schools:       sqlxrepos.NewSchoolRepository(db),
		Courses:       sqlxrepos.NewCourseRepository(db),
		Attendance:    sqlxrepos.NewAttendanceRepository(db),
		Grades:        sqlxrepos.NewGradeRepository(db),
		Payments:      sqlxrepos.NewPaymentRepository(db),
		Reports:       sqlxrepos.NewReportRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
	}
}

// DummyRepos returns the in-memory repositories.
func DummyRepos(db *dummydb.DB) Repos {
	return Repos{
		Users:         dummydb.NewUserRepository(db),
		Schools:       dummydb.NewSchoolRepository(db),
		Courses:       dummydb.NewCourseRepository(db),
		Attendance:    dummydb.NewAttendanceRepository(db),
		Grades:        dummydb.NewGradeRepository(db),
		Payments:      dummydb.NewPaymentRepository(db),
		Reports:       dummydb.NewReportRepository(db),
		Notifications: dummydb.NewNotificationRepository(db),
	}
}

// Infra holds the process wide collaborators of the services.
type Infra struct {
	Locker core.Locker
	Broker core.Broker
	Mailer core.EmailService
	Logger core.Logger
}

type Services struct {
	Validate   *validator.Validate
	Translator ut.Translator

	Users         *user.Service
	Schools       *school.Service
	Courses       *course.Service
	Attendance    *attendance.Service
	Grades        *grade.Service
	Payments      *payment.Service
	Reports       *report.Service
	Notifications *notification.Service
}

// NewValidator returns a validator with every custom validation and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

func NewServices(repos Repos, infra Infra) *Services {
	validate, translator := NewValidator()

	schools := school.NewService(repos.Schools, validate)
	attendances := attendance.NewService(repos.Attendance, schools, validate)
	grades := grade.NewService(repos.Grades, schools, validate)
	payments := payment.NewService(repos.Payments, schools, validate)
	notifications := notification.NewService(repos.Notifications, infra.Broker, infra.Mailer, infra.Logger)

	return &Services{
		Validate:      validate,
		Translator:    translator,
		Users:         user.NewService(repos.Users, schools),
		Schools:       schools,
		Courses:       course.NewService(repos.Courses, schools, infra.Locker, validate),
		Attendance:    attendances,
		Grades:        grades,
		Payments:      payments,
		Notifications: notifications,
		Reports: report.NewService(report.Deps{
			Repo:       repos.Reports,
			Students:   schools,
			Attendance: attendances,
			Grades:     grades,
			Payments:   payments,
			Notifier:   notifications,
			Validate:   validate,
			Logger:     infra.Logger,
		}),
	}
}

// NewRedisClient connects to the configured Redis and checks it answers.
func NewRedisClient(conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// NewLocker returns the locker of the configured backend.
// db and rdb may be nil when their backend is not selected.
func NewLocker(conf *core.Config, db *sqlx.DB, rdb *redis.Client, logger core.Logger) (core.Locker, error) {
	switch conf.LockBackend {
	case "", "local":
		return locksvc.NewLocalLocker(), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis lock backend requires redis")
		}
		return locksvc.NewRedisLocker(rdb, conf.LockTTL, logger), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres lock backend requires the postgres database")
		}
		return locksvc.NewPostgresLocker(db, logger), nil
	}
	return nil, errors.Errorf("unknown lock backend %q", conf.LockBackend)
}

// NewBroker returns the broker of the configured backend.
func NewBroker(conf *core.Config, rdb *redis.Client) (core.Broker, error) {
	switch conf.BrokerBackend {
	case "", "local":
		return pubsub.NewLocalBroker(), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis broker backend requires redis")
		}
		return pubsub.NewRedisBroker(rdb), nil
	}
	return nil, errors.Errorf("unknown broker backend %q", conf.BrokerBackend)
}

// NeedsRedis reports whether a configured backend uses Redis.
func NeedsRedis(conf *core.Config) bool {
	return conf.LockBackend == "redis" || conf.BrokerBackend == "redis"
}
