package main

import (
	"database/sql"
	"errors"

	"github.com/spf13/cobra"

	"github.com/trezcool/shule/storage/database"
)

var errNoDatabase = errors.New("migrations require the postgres storage")

var runMigrationsFunc = func(db *sql.DB, command string, args ...string) error { // mockable
	if db == nil {
		return errNoDatabase
	}
	return database.RunMigrations(db, command, args...)
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, up-to, down, status...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return runMigrationsFunc(cli.db, args[0], args[1:]...)
		},
	}
}
