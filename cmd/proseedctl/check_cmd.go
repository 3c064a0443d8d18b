package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/proseed/proseed/modules/workflow/services"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the task forest and its associations",
		Long: `Walks every task's parent chain, checks that parents exist and share the
task's process, and looks for associations pointing at missing rows.
Exits 3 when an error-level finding is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			checker := s.app.Service(services.CheckService{}).(*services.CheckService)
			report, err := checker.Run(s.ctx)
			if err != nil {
				return withCode(exitInternal, err)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "checked %d tasks, %d findings\n", report.Tasks, len(report.Findings))
				if len(report.Findings) > 0 {
					tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "TASK\tSEVERITY\tCODE\tMESSAGE")
					for _, f := range report.Findings {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.TaskID, f.Severity, f.Code, f.Message)
					}
					_ = tw.Flush()
				}
			}
			if n := report.Errors(); n > 0 {
				return withCode(exitViolations, errors.Errorf("%d violations found", n))
			}
			return nil
		},
	}
}
