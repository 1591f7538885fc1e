package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core/school"
)

func (cli *commandLine) createSchoolCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "createschool",
		Short: "Create a school and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				_ = cmd.Usage()
				return errHelp
			}
			sch, err := cli.svcs.Schools.CreateSchool(context.Background(), school.NewSchool{Name: name})
			if err != nil {
				return err
			}
			cli.printf("%s\n", sch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The school name.")
	return cmd
}
