// File: cmd/history.go
package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/tapsolver/internal/observability"
	"github.com/xkilldash9x/tapsolver/internal/store"
)

var errNoDatabase = errors.New("no database configured: set database.url, TAPSOLVER_DATABASE_URL or --db")

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent solve attempts",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlag("database.url", cmd.Flags().Lookup("db"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			url := v.GetString("database.url")
			if url == "" {
				return errNoDatabase
			}
			ctx := cmd.Context()
			s, closeDB, err := store.Open(ctx, url, observability.GetLogger())
			if err != nil {
				return err
			}
			defer closeDB()

			attempts, err := s.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No attempts recorded.")
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tOUTCOME\tARCHETYPE\tSTRATEGY\tCLICKS\tSKIPPED\tDURATION\tPROMPT")
			for _, a := range attempts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					a.StartedAt.Local().Format("2006-01-02 15:04:05"), a.Outcome, a.Archetype, a.Strategy,
					a.Clicks, a.Skipped, a.Duration, a.Prompt)
			}
			return tw.Flush()
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show")
	historyCmd.Flags().String("db", "", "PostgreSQL URL for the attempt history")
	return historyCmd
}
