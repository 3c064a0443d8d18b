package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/schema"
	"github.com/proseed/proseed/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Apply or inspect the postgres schema migrations",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{string(schema.Up), string(schema.Down), string(schema.Status)},
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := configuration.Load()
			if err != nil {
				return withCode(exitInvalid, errors.Wrap(err, "load configuration"))
			}
			defer conf.Unload()

			dsn := conf.Database.DSN()
			if err := schema.Migrate(cmd.Context(), dsn, schema.Direction(args[0])); err != nil {
				return withCode(exitInternal, err)
			}
			version, err := schema.Version(cmd.Context(), dsn)
			if err != nil {
				return withCode(exitInternal, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
