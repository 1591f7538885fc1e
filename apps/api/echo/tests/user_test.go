package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

const testPwd = "Tr0ub4dor&3"

func Test_home(t *testing.T) {
	app, _ := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Shule API!", rec.Body.String())
}

func Test_userApi_login(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")

	admin := testutil.CreateUser(t, env.Repos.Users, sch.ID, "Admin", "admin", "admin@test.cd", testPwd, []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, env.Repos.Users, sch.ID, "Naughty", "ndog", "ndog@test.cd", testPwd, []string{user.RoleAdmin}, false)
	// teacher role, no teacher profile
	testutil.CreateUser(t, env.Repos.Users, sch.ID, "Ghost", "ghost", "ghost@test.cd", testPwd, []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, env.Repos.Users, sch.ID, "Nobody", "nobody", "nobody@test.cd", testPwd, nil, true)
	_, teacher := env.CreateTeacher(t, sch.ID, "teacher")
	teacherUsr, err := env.Svcs.Users.GetByID(context.Background(), teacher.UserID)
	require.NoError(t, err)
	require.NoError(t, teacherUsr.SetPassword(testPwd))
	_, err = env.Repos.Users.UpdateUser(context.Background(), teacherUsr)
	require.NoError(t, err)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}
	invalidCreds := marchallObj(t, echoapi.ErrorResponse{Message: user.ErrInvalidCredentials.Error()})

	tests := []httpTest{
		{
			name: "empty body", body: nil, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "validation failed",
				Fields:  map[string]string{"username": "this field is required", "password": "this field is required"},
			}),
		},
		{name: "unknown user", body: login("lol", testPwd), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{name: "wrong password", body: login("admin", "lol"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{
			name: "deactivated", body: login("ndog", testPwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: user.ErrAccountDeactivated.Error()}),
		},
		{
			name: "no profile", body: login("ghost", testPwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: user.ErrNoProfile.Error()}),
		},
		{
			name: "no role", body: login("nobody", testPwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: user.ErrNoRole.Error()}),
		},
		{name: "admin (username)", body: login("ADMIN ", testPwd), wantCode: http.StatusOK, extra: user.KindAdmin},
		{name: "admin (email)", body: login(admin.Email, testPwd), wantCode: http.StatusOK, extra: user.KindAdmin},
		{name: "teacher", body: login(teacherUsr.Username, testPwd), wantCode: http.StatusOK, extra: user.KindTeacher},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)

			if kind, ok := tt.extra.(user.Kind); ok {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				require.NotEmpty(t, resp.Token)

				// the token authenticates as the resolved principal
				meReq, meRec := newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
				app.ServeHTTP(meRec, meReq)
				require.Equal(t, http.StatusOK, meRec.Code)
				var me echoapi.MeResponse
				decode(t, meRec, &me)
				assert.Equal(t, kind, me.Kind)
				assert.NotEmpty(t, me.ProfileID)
				assert.False(t, me.User.LastLogin.IsZero())
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	usr, admin := env.CreateAdmin(t, sch.ID, "admin")
	parent, parentP := env.CreateParent(t, sch.ID, "parent")
	parentUsr, err := env.Svcs.Users.GetByID(context.Background(), parentP.UserID)
	require.NoError(t, err)

	runTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", path: "/v1/users/me", token: "lol", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "invalid or expired jwt"}),
		},
		{
			name: "admin", path: "/v1/users/me", token: getToken(t, env, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.MeResponse{User: usr, Kind: user.KindAdmin, ProfileID: usr.ID}),
		},
		{
			name: "parent", path: "/v1/users/me", token: getToken(t, env, parentP), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.MeResponse{User: parentUsr, Kind: user.KindParent, ProfileID: parent.ID}),
		},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	usr, admin := env.CreateAdmin(t, sch.ID, "admin")

	expired, err := echoapi.GenerateToken(env.Conf, echoapi.NewClaims(env.Conf, admin, time.Now().Add(-2*env.Conf.Server.JWTRefreshExpirationDelta).Unix()))
	require.NoError(t, err)

	runTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Refresh expired", method: http.MethodPost, path: "/v1/users/token-refresh", token: expired,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, echoapi.ErrorResponse{Message: "refresh has expired"}),
		},
		{name: "Refresh", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, env, admin), wantCode: http.StatusOK},
	})

	// a deactivated user cannot refresh anymore
	usr.IsActive = false
	_, err = env.Repos.Users.UpdateUser(context.Background(), usr)
	require.NoError(t, err)
	runTests(t, app, []httpTest{
		{
			name: "Deactivated", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, env, admin),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, echoapi.ErrorResponse{Message: user.ErrAccountDeactivated.Error()}),
		},
	})
}

func Test_userApi_roles(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, teacher := env.CreateTeacher(t, sch.ID, "teacher")

	runTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/users/roles", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users/roles", token: getToken(t, env, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "permission denied"}),
		},
		{name: "Get roles", path: "/v1/users/roles", token: getToken(t, env, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	})
}

func Test_userApi_register(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	_, admin := env.CreateAdmin(t, sch.ID, "admin")
	_, owner := env.CreateAdmin(t, sch.ID, "owner", user.RoleAdminOwner)
	testutil.CreateUser(t, env.Repos.Users, sch.ID, "Taken", "taken", "taken@test.cd", "", []string{user.RoleStudent}, true)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "Joseph Kabila",
			Username:        uname,
			Email:           uname + "@test.cd",
			Password:        testPwd,
			PasswordConfirm: testPwd,
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: newUser("kabila", user.RoleTeacher), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Roles above the admin's", token: getToken(t, env, admin), body: newUser("kabila", user.RoleAdminOwner),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "validation failed",
				Fields:  map[string]string{"roles": "not enough rights to set these roles"},
			}),
		},
		{
			name: "Invalid roles", token: getToken(t, env, admin), body: newUser("kabila", "lol"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{Message: "validation failed", Fields: map[string]string{"roles": "invalid roles"}}),
		},
		{
			name: "Username taken", token: getToken(t, env, admin), body: newUser("taken", user.RoleTeacher), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: user.ErrUserExists.Error(),
				Fields:  map[string]string{"username": user.ErrUserExists.Error(), "email": user.ErrUserExists.Error()},
			}),
		},
		{name: "Register teacher", token: getToken(t, env, admin), body: newUser("kabila", user.RoleTeacher), wantCode: http.StatusCreated},
		{name: "Owner registers owner", token: getToken(t, env, owner), body: newUser("tshisekedi", user.RoleAdminOwner), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt)
			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusCreated {
				var usr user.User
				decode(t, rec, &usr)
				assert.NotEmpty(t, usr.ID)
				assert.Equal(t, sch.ID, usr.SchoolID)
				assert.True(t, usr.IsActive)
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	other := env.CreateSchool(t, "Other")

	now := time.Now()
	adminUsr, admin := env.CreateAdmin(t, sch.ID, "admin")
	usr1 := testutil.CreateUser(t, env.Repos.Users, sch.ID, "User", "awe", "awe@test.cd", "", []string{user.RoleStudent}, true, now.Add(time.Hour))
	usr2 := testutil.CreateUser(t, env.Repos.Users, sch.ID, "King", "user02", "king@test.cd", "", []string{user.RoleTeacher}, false, now.Add(2*time.Hour))
	testutil.CreateUser(t, env.Repos.Users, other.ID, "Foreign", "foreign", "foreign@test.cd", "", []string{user.RoleStudent}, true)

	token := getToken(t, env, admin)
	runTests(t, app, []httpTest{
		{name: "Get all of the school", path: "/v1/users", token: token, wantCode: http.StatusOK, wantData: marchallList(t, usr2, usr1, adminUsr)},
		{name: "search", path: "/v1/users?search=KING", token: token, wantCode: http.StatusOK, wantData: marchallList(t, usr2)},
		{name: "role", path: "/v1/users?role=student:", token: token, wantCode: http.StatusOK, wantData: marchallList(t, usr1)},
		{name: "is_active", path: "/v1/users?is_active=false", token: token, wantCode: http.StatusOK, wantData: marchallList(t, usr2)},
		{name: "search (unknown)", path: "/v1/users?search=foreign", token: token, wantCode: http.StatusOK, wantData: marchallList(t)},
	})
}

func Test_userApi_destroy(t *testing.T) {
	app, env := setup(t)
	sch := env.CreateSchool(t, "School")
	other := env.CreateSchool(t, "Other")
	adminUsr, admin := env.CreateAdmin(t, sch.ID, "admin")
	victim := testutil.CreateUser(t, env.Repos.Users, sch.ID, "Victim", "victim", "victim@test.cd", "", []string{user.RoleStudent}, true)
	foreign := testutil.CreateUser(t, env.Repos.Users, other.ID, "Foreign", "foreign", "foreign@test.cd", "", []string{user.RoleStudent}, true)

	token := getToken(t, env, admin)
	notFound := marchallObj(t, echoapi.ErrorResponse{Message: "user not found"})
	runTests(t, app, []httpTest{
		{
			name: "Cannot delete self", method: http.MethodDelete, path: "/v1/users/" + adminUsr.ID, token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, echoapi.ErrorResponse{Message: "cannot delete yourself"}),
		},
		{name: "Other school", method: http.MethodDelete, path: "/v1/users/" + foreign.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Unknown", method: http.MethodDelete, path: "/v1/users/lol", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Delete", method: http.MethodDelete, path: "/v1/users/" + victim.ID, token: token, wantCode: http.StatusNoContent},
		{name: "Already deleted", method: http.MethodDelete, path: "/v1/users/" + victim.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
	})
}
