package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openwdl/conformance/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conformance runs",
		Long: `List recent runs recorded with --history-db, newest first.

Examples:
  wdltest history --db runs.db
  wdltest history --db runs.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "history database path")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	store, err := history.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s  total=%d passed=%d warned=%d failed=%d invalid=%d ignored=%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Engine,
			r.Total, r.Summary.Passed, r.Summary.Warned, r.Summary.Failed,
			r.Summary.Invalid, r.Summary.Ignored)
	}
	return nil
}
