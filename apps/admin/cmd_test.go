package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv()
	out := new(bytes.Buffer)
	return &commandLine{svcs: env.Svcs, out: out}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	orig := runMigrationsFunc
	defer func() { runMigrationsFunc = orig }()

	var ran []string
	runMigrationsFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, strings.Join(append([]string{command}, args...), " "))
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}, extra: "up"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}, extra: "up-to 2"},
		{name: "down", args: []string{"migrate", "down"}, extra: "down"},
		{name: "status", args: []string{"migrate", "status"}, extra: "status"},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}, extra: "create course sql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran = nil
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
			if want, ok := tt.extra.(string); ok {
				assert.Equal(t, []string{want}, ran)
			}
		})
	}
}

func Test_commandLine_migrateWithoutDatabase(t *testing.T) {
	cli, _, _ := setup(t)
	assert.Equal(t, errNoDatabase, cli.run([]string{"admin", "migrate", "up"}))
}

func Test_commandLine_createSchool(t *testing.T) {
	cli, env, out := setup(t)

	assert.Equal(t, errHelp, cli.run([]string{"admin", "createschool"}))
	assert.Contains(t, out.String(), "Usage:")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "createschool", "--name", "  Institut  Maendeleo "}))
	id := strings.TrimSpace(out.String())
	sch, err := env.Svcs.Schools.GetSchool(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Institut Maendeleo", sch.Name)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, _ := setup(t)
	sch := env.CreateSchool(t, "School")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no username nor email", args: []string{"adduser", "--school", sch.ID}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--school", sch.ID, "--username", "awe"}, wantErr: errHelp},
		{
			name: "unknown school", args: []string{"adduser", "--school", "lol", "--username", "awe"},
			extra: extra{pwd: "Pa$$w0rd"}, wantErrStr: "not found",
		},
		{
			name: "invalid roles", args: []string{"adduser", "--school", sch.ID, "--username", "awe", "--roles", "lol"},
			extra: extra{pwd: "Pa$$w0rd"}, wantErrStr: "invalid roles",
		},
		{
			name: "create admin", args: []string{"adduser", "--school", sch.ID, "--username", "AWE", "--email", "awe@test.cd"},
			extra: extra{pwd: "Pa$$w0rd"},
		},
		{
			name: "update as teacher", args: []string{"adduser", "--school", sch.ID, "--email", "awe@test.cd", "--roles", user.RoleTeacher},
			extra: extra{pwd: "N3w-Pa$$"},
		},
	}

	orig := readPasswordFunc
	defer func() { readPasswordFunc = orig }()

	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := env.Svcs.Users.GetByUsernameOrEmail(context.Background(), "awe")
	require.NoError(t, err)
	assert.Equal(t, sch.ID, usr.SchoolID)
	assert.Equal(t, []string{user.RoleTeacher}, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("N3w-Pa$$"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	sch := env.CreateSchool(t, "School")
	usr := testutil.CreateUser(t, env.Repos.Users, sch.ID, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, extra: extra{pwd: "lmao"}},
	}

	orig := readPasswordFunc
	defer func() { readPasswordFunc = orig }()

	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			refreshed, err := env.Svcs.Users.GetByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.extra.(extra).pwd))
		})
	}
}

func Test_commandLine_generate(t *testing.T) {
	cli, env, out := setup(t)
	sch := env.CreateSchool(t, "School")

	tests := []cliTest{
		{name: "no kind", args: []string{"generate", "--school", sch.ID}, wantErr: errHelp},
		{name: "no school", args: []string{"generate", "attendance"}, wantErr: errHelp},
		{name: "unknown kind", args: []string{"generate", "lol", "--school", sch.ID}, wantErrStr: "unknown report kind"},
		{name: "attendance", args: []string{"generate", "attendance", "--school", sch.ID}, extra: report.KindAttendance},
		{
			name: "financial", args: []string{"generate", "financial", "--school", sch.ID, "--start", "2025-01-01", "--end", "2025-03-31"},
			extra: report.KindFinancial,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
			if kind, ok := tt.extra.(report.Kind); ok {
				var outcome report.Outcome
				require.NoError(t, json.Unmarshal(out.Bytes(), &outcome))
				assert.Equal(t, kind, outcome.Kind)
				assert.True(t, outcome.NothingToDo)
			}
		})
	}
}

func Test_commandLine_generateInvalidRange(t *testing.T) {
	cli, env, _ := setup(t)
	sch := env.CreateSchool(t, "School")

	err := cli.run([]string{"admin", "generate", "financial", "--school", sch.ID, "--start", "2025-03-31", "--end", "2025-01-01"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}
