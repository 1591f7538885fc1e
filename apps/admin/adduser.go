package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var errInvalidRoles = errors.New("invalid roles")

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		schoolID, name, uname, email string
		roles                        []string
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schoolID == "" || (uname == "" && email == "") {
				_ = cmd.Usage()
				return errHelp
			}
			if len(roles) == 0 {
				roles = user.AdminRoles
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(schoolID, name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			cli.printf("%s\n", usr.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&schoolID, "school", "", "The id of the user's school.")
	flags.StringVar(&name, "name", "", "The user's full name.")
	flags.StringVar(&uname, "username", "", "The user's username.")
	flags.StringVar(&email, "email", "", "The user's email.")
	flags.StringSliceVar(&roles, "roles", nil, "The user's roles (default: all admin roles).")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(schoolID, name, uname, email, pwd string, roles []string) (user.User, error) {
	ctx := context.Background()
	if _, err := cli.svcs.Schools.GetSchool(ctx, schoolID); err != nil {
		return user.User{}, err
	}
	for _, role := range roles {
		if user.RolePriority(role) == 0 {
			return user.User{}, errors.Wrapf(errInvalidRoles, "role %q", role)
		}
	}
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if name == "" {
		name = uname
		if name == "" {
			name = email
		}
	}
	return cli.svcs.Users.Upsert(ctx, user.User{
		SchoolID: schoolID,
		Name:     name,
		Username: uname,
		Email:    email,
		Roles:    roles,
	}, pwd)
}
