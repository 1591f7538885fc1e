package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/user"
)

func TestNewPrincipal(t *testing.T) {
	id := user.Identity{UserID: "u1", SchoolID: "s1"}
	tests := []struct {
		kind          user.Kind
		want          user.Principal
		wantProfileID string
	}{
		{kind: user.KindAdmin, want: user.Admin{Identity: id, Roles: []string{user.RoleAdmin}}, wantProfileID: "u1"},
		{kind: user.KindTeacher, want: user.Teacher{Identity: id, TeacherID: "p1"}, wantProfileID: "p1"},
		{kind: user.KindParent, want: user.Parent{Identity: id, ParentID: "p1"}, wantProfileID: "p1"},
		{kind: user.KindStudent, want: user.Student{Identity: id, StudentID: "p1"}, wantProfileID: "p1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := user.NewPrincipal(tt.kind, id, "p1", []string{user.RoleAdmin})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.kind, p.Kind())
			assert.Equal(t, id, p.Ident())
			assert.Equal(t, tt.wantProfileID, p.ProfileID())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		p, err := user.NewPrincipal("janitor", id, "p1", nil)
		assert.Error(t, err)
		assert.Nil(t, p)
	})
}

func TestAdmin_HasAnyRole(t *testing.T) {
	admin := user.Admin{Roles: []string{user.RoleAdmin, user.RoleAdminPrincipal}}
	assert.True(t, admin.HasAnyRole())
	assert.True(t, admin.HasAnyRole(user.RoleAdminOwner, user.RoleAdminPrincipal))
	assert.False(t, admin.HasAnyRole(user.RoleAdminOwner))
	assert.False(t, user.Admin{}.HasAnyRole(user.RoleAdmin))
}

func TestUser_Kind(t *testing.T) {
	tests := []struct {
		roles []string
		want  user.Kind
	}{
		{nil, ""},
		{[]string{"janitor:"}, ""},
		{[]string{user.RoleStudent}, user.KindStudent},
		{[]string{user.RoleParent}, user.KindParent},
		{[]string{user.RoleStudent, user.RoleTeacher}, user.KindTeacher},
		{[]string{user.RoleParent, user.RoleAdminOwner}, user.KindAdmin},
	}
	for _, tt := range tests {
		usr := user.User{Roles: tt.roles}
		assert.Equal(t, tt.want, usr.Kind(), "roles %v", tt.roles)
	}
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, user.MaxRolePriority(nil))
	assert.Equal(t, 0, user.MaxRolePriority([]string{"lol"}))
	assert.Equal(t, 21, user.MaxRolePriority([]string{user.RoleStudent, user.RoleTeacher}))
	assert.Equal(t, 40, user.MaxRolePriority([]string{user.RoleAdmin, user.RoleAdminOwner, user.RoleAdminPrincipal}))
}

func TestUser_CheckPassword(t *testing.T) {
	var usr user.User
	require.NoError(t, usr.SetPassword("Tr0ub4dor&3"))
	assert.NoError(t, usr.CheckPassword("Tr0ub4dor&3"))
	assert.Error(t, usr.CheckPassword("tr0ub4dor&3"))
}
