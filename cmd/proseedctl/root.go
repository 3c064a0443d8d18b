package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	json bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "proseedctl",
		Short:         "Maintenance tools for the proseed task store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Machine-readable output")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
