package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/index"
)

func newSearchCmd() *cobra.Command {
	var (
		project    string
		limit      int
		sidechains bool
	)
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search indexed sessions",
		Long: "search runs a full-text query over the index built by " +
			"the index command. Without a query it lists the most " +
			"recently modified sessions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ix, err := index.Open(a.cfg.IndexDir(), a.log)
			if err != nil {
				return err
			}
			defer ix.Close()

			results, err := ix.Query(cmd.Context(),
				strings.Join(args, " "), index.QueryOptions{
					Project:          project,
					Limit:            limit,
					IncludeSidechain: sidechains,
				})
			if errors.Is(err, index.ErrNoFTS) {
				return fmt.Errorf(
					"this build of sqlite lacks FTS5; only empty queries work")
			}
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no matches")
				return nil
			}
			printResults(cmd, results)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "",
		"only sessions from this project")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0,
		"show at most N results (default 10)")
	cmd.Flags().BoolVar(&sidechains, "include-sidechains", false,
		"include sidechain sessions")
	return cmd
}

func printResults(cmd *cobra.Command, results []index.Result) {
	out := cmd.OutOrStdout()
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%s] %s  %s  %s\n",
			i+1, r.Agent, r.SessionID, r.Project, shortDate(r.Modified))
		if r.Snippet != "" {
			fmt.Fprintf(out, "   %s\n", r.Snippet)
		} else if r.FirstMsg != "" {
			fmt.Fprintf(out, "   %s\n", oneLine(r.FirstMsg, 100))
		}
	}
}

// shortDate compacts an RFC3339 timestamp for display.
func shortDate(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
