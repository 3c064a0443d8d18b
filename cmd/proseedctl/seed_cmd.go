package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/proseed/proseed/modules/workflow/seed"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
)

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load roles, skills, departments, processes, tasks and employees from YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return withCode(exitInvalid, errors.Wrap(err, "open fixtures"))
			}
			defer f.Close()
			fixtures, err := seed.Load(f)
			if err != nil {
				return withCode(exitInvalid, err)
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			seeder := application.NewSeeder()
			report := seed.Register(seeder, fixtures)
			if err := seeder.Seed(s.ctx, s.app); err != nil {
				code := exitInternal
				var unknown *seed.UnknownReferenceError
				if errors.As(err, &unknown) || services.AsServiceError(err).Status < 500 {
					code = exitInvalid
				}
				return withCode(code, errors.Wrap(err, "seed"))
			}

			if opts.json {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d catalog entries, %d processes, %d tasks, %d employees, %d assignments\n",
				report.Entries, report.Processes, report.Tasks, report.Employees, report.Assignments)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixtures file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
