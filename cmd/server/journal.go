package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"opsbridge/internal/journal"
	"opsbridge/internal/platform/config"
)

func newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the reconciliation journal",
	}

	var (
		limit  int
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List promotions that need manual reconciliation, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required to read the journal")
			}
			db, err := openJournalDB(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := journal.NewPostgres(db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return printEntries(cmd, entries)
		},
	}
	list.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "maximum entries to show")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.AddCommand(list)
	return cmd
}

func printEntries(cmd *cobra.Command, entries []journal.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tSOURCE\tSTATE\tTASKS\tDECISIONS\tREASON")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.RecordedAt.Format(time.RFC3339), e.SourceID, e.State,
			len(e.CreatedTaskIDs), len(e.CreatedDecisionIDs), e.Reason)
	}
	return w.Flush()
}
