package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// errHistoryDisabled is returned by history commands when the profile does not keep one.
var errHistoryDisabled = errors.New("history is disabled; set [history] enabled = true in config.toml")

func (a *app) historyCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
		prune  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if !a.cfg.History.Enabled {
				return errHistoryDisabled
			}
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := a.output(cmd)
			if cmd.Flags().Changed("prune") {
				removed, err := store.Prune(ctx, prune)
				if err != nil {
					return err
				}
				out.Success("removed %d record(s)", removed)
				return nil
			}

			records, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				out.Info("no calls recorded")
				return nil
			}
			table := out.NewTable("ID", "STARTED", "METHOD", "OUTCOME", "DURATION", "ERROR")
			for _, rec := range records {
				table.AddRow(
					rec.ID,
					time.UnixMilli(rec.StartedAt).Format(time.DateTime),
					rec.Method,
					string(rec.Outcome),
					(time.Duration(rec.DurationMS) * time.Millisecond).String(),
					truncate(rec.Error, 60),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the newest N records")
	return cmd
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n-3])
}
