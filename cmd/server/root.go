package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "opsbridge",
		Short:         "Reconciliation engine between automation callers and the record store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newNormalizeCommand())
	cmd.AddCommand(newJournalCommand())
	return cmd
}
