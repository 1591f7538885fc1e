// Package testutil builds in-memory environments and fixtures for tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/trezcool/shule/apps/shared"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	locksvc "github.com/trezcool/shule/services/lock"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/services/pubsub"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

// AcademicYear is the academic year used by fixtures.
const AcademicYear = "2025-2026"

// Env is a complete application running on the in-memory storage.
type Env struct {
	Conf   *core.Config
	Logger core.Logger
	DB     *dummydb.DB
	Repos  shared.Repos
	Mailer *emailsvc.ConsoleServiceMock
	Broker *pubsub.LocalBroker
	Svcs   *shared.Services
}

// NewLogger returns a logger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := NewLogger(conf)
	db := dummydb.Open()
	repos := shared.DummyRepos(db)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	broker := pubsub.NewLocalBroker()

	return &Env{
		Conf:   conf,
		Logger: logger,
		DB:     db,
		Repos:  repos,
		Mailer: mailer,
		Broker: broker,
		Svcs: shared.NewServices(repos, shared.Infra{
			Locker: locksvc.NewLocalLocker(),
			Broker: broker,
			Mailer: mailer,
			Logger: logger,
		}),
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	schoolID, name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		SchoolID:  schoolID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateSchool(t *testing.T, name string) school.School {
	sch, err := env.Svcs.Schools.CreateSchool(context.Background(), school.NewSchool{Name: name})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	return sch
}

func (env *Env) CreateClass(t *testing.T, schoolID, name string) school.Class {
	c, err := env.Svcs.Schools.CreateClass(context.Background(), schoolID, school.NewClass{Name: name, AcademicYear: AcademicYear})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return c
}

func (env *Env) CreateSubject(t *testing.T, schoolID, name string, coefficient float64) school.Subject {
	s, err := env.Svcs.Schools.CreateSubject(context.Background(), schoolID, school.NewSubject{Name: name, Coefficient: coefficient})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return s
}

func (env *Env) CreateClassroom(t *testing.T, schoolID, name string) school.Classroom {
	c, err := env.Svcs.Schools.CreateClassroom(context.Background(), schoolID, school.NewClassroom{Name: name, Capacity: 30})
	if err != nil {
		t.Fatalf("createClassroom() failed: %v", err)
	}
	return c
}

// CreateAdmin creates an active admin user and its principal.
func (env *Env) CreateAdmin(t *testing.T, schoolID, uname string, roles ...string) (user.User, user.Admin) {
	if len(roles) == 0 {
		roles = []string{user.RoleAdmin}
	}
	usr := CreateUser(t, env.Repos.Users, schoolID, "Admin "+uname, uname, uname+"@test.cd", "", roles, true)
	return usr, user.Admin{
		Identity: user.Identity{UserID: usr.ID, SchoolID: schoolID},
		Roles:    roles,
	}
}

// CreateTeacher creates a teacher profile linked to an active user.
func (env *Env) CreateTeacher(t *testing.T, schoolID, uname string) (school.Member, user.Teacher) {
	usr := CreateUser(t, env.Repos.Users, schoolID, "Teacher "+uname, uname, uname+"@test.cd", "", []string{user.RoleTeacher}, true)
	m := env.createMember(t, school.MemberTeacher, schoolID, usr)
	return m, user.Teacher{
		Identity:  user.Identity{UserID: usr.ID, SchoolID: schoolID},
		TeacherID: m.ID,
	}
}

// CreateParent creates a parent profile linked to an active user.
func (env *Env) CreateParent(t *testing.T, schoolID, uname string) (school.Member, user.Parent) {
	usr := CreateUser(t, env.Repos.Users, schoolID, "Parent "+uname, uname, uname+"@test.cd", "", []string{user.RoleParent}, true)
	m := env.createMember(t, school.MemberParent, schoolID, usr)
	return m, user.Parent{
		Identity: user.Identity{UserID: usr.ID, SchoolID: schoolID},
		ParentID: m.ID,
	}
}

func (env *Env) createMember(t *testing.T, kind school.MemberKind, schoolID string, usr user.User) school.Member {
	m, err := env.Svcs.Schools.CreateMember(context.Background(), kind, schoolID, school.NewMember{
		Name:   usr.Name,
		Email:  usr.Email,
		UserID: usr.ID,
	})
	if err != nil {
		t.Fatalf("create%s() failed: %v", kind, err)
	}
	return m
}

// CreateStudent creates an active student; parentID may be empty.
func (env *Env) CreateStudent(t *testing.T, schoolID, classID, parentID, firstName string) school.Student {
	st, err := env.Svcs.Schools.CreateStudent(context.Background(), schoolID, school.NewStudent{
		FirstName: firstName,
		LastName:  "Test",
		ClassID:   classID,
		ParentID:  parentID,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return st
}

// StudentPrincipal links a user to an existing student and returns its principal.
func (env *Env) StudentPrincipal(t *testing.T, st school.Student, uname string) user.Student {
	usr := CreateUser(t, env.Repos.Users, st.SchoolID, st.FullName(), uname, uname+"@test.cd", "", []string{user.RoleStudent}, true)
	return user.Student{
		Identity:  user.Identity{UserID: usr.ID, SchoolID: st.SchoolID},
		StudentID: st.ID,
	}
}
