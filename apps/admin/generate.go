package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
)

// cliUserID identifies the admin principal used by the command line.
const cliUserID = "admin-cli"

var errUnknownReport = errors.New("unknown report kind")

func (cli *commandLine) generateCmd() *cobra.Command {
	var (
		schoolID, start, end string
		trimester            int
	)
	cmd := &cobra.Command{
		Use:       "generate attendance|bulletins|performance|financial",
		Short:     "Generate the reports of a school and print the outcome",
		ValidArgs: []string{"attendance", "bulletins", "performance", "financial"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || schoolID == "" {
				_ = cmd.Usage()
				return errHelp
			}
			out, err := cli.generate(schoolID, args[0], trimester, report.FinancialRequest{StartDate: start, EndDate: end})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cli.out)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&schoolID, "school", "", "The id of the school.")
	flags.IntVar(&trimester, "trimester", 0, "The bulletins trimester (1-3).")
	flags.StringVar(&start, "start", "", "The financial report start date (YYYY-MM-DD).")
	flags.StringVar(&end, "end", "", "The financial report end date (YYYY-MM-DD).")
	return cmd
}

func (cli *commandLine) generate(schoolID, kind string, trimester int, fin report.FinancialRequest) (report.Outcome, error) {
	ctx := context.Background()
	if _, err := cli.svcs.Schools.GetSchool(ctx, schoolID); err != nil {
		return report.Outcome{}, err
	}
	p := user.Admin{
		Identity: user.Identity{UserID: cliUserID, SchoolID: schoolID},
		Roles:    user.AdminRoles,
	}

	switch kind {
	case "attendance":
		return cli.svcs.Reports.GenerateAttendance(ctx, p)
	case "bulletins":
		return cli.svcs.Reports.GenerateBulletins(ctx, p, trimester)
	case "performance":
		return cli.svcs.Reports.GeneratePerformance(ctx, p)
	case "financial":
		return cli.svcs.Reports.GenerateFinancial(ctx, p, fin)
	}
	return report.Outcome{}, errors.Wrapf(errUnknownReport, "%q", kind)
}
