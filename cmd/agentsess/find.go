package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/lineage"
	"github.com/agentsess/agentsess/internal/session"
)

// findFlags are shared by find, find-claude, and find-codex.
type findFlags struct {
	all      bool
	branch   string
	keywords []string
	limit    int
	original bool
}

func (f *findFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.all, "all", "a", false,
		"list sessions from every directory, not just the current one")
	cmd.Flags().StringVar(&f.branch, "branch", "",
		"only sessions recorded on this git branch")
	cmd.Flags().StringSliceVarP(&f.keywords, "keyword", "k", nil,
		"only sessions whose content contains every keyword")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0,
		"show at most N sessions (0 = all)")
	cmd.Flags().BoolVar(&f.original, "original-only", false,
		"exclude trimmed and continued sessions")
}

func (f *findFlags) filter(a *app, agents ...session.Agent) session.Filter {
	flt := session.Filter{
		Agents:       agents,
		Branch:       f.branch,
		Keywords:     f.keywords,
		OriginalOnly: f.original,
	}
	if !f.all {
		flt.CWD = a.cwd
	}
	return flt
}

func newFindCmd() *cobra.Command {
	var flags findFlags
	cmd := &cobra.Command{
		Use:   "find",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return runFind(cmd, a, flags, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func newFindAgentCmd(agent session.Agent) *cobra.Command {
	var flags findFlags
	cmd := &cobra.Command{
		Use:   "find-" + string(agent),
		Short: fmt.Sprintf("List %s sessions, newest first", agent),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return runFind(cmd, a, flags, []session.Agent{agent})
		},
	}
	flags.register(cmd)
	return cmd
}

func runFind(
	cmd *cobra.Command, a *app, flags findFlags, agents []session.Agent,
) error {
	sessions := a.store.Discover(flags.filter(a, agents...))
	if flags.limit > 0 && len(sessions) > flags.limit {
		sessions = sessions[:flags.limit]
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no sessions found")
		return nil
	}
	printSessions(cmd.OutOrStdout(), sessions)
	return nil
}

func newFindOriginalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-original [ref]",
		Short: "Show the root ancestor of a derived session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			s, err := a.resolve(args)
			if err != nil {
				return err
			}
			orig, err := lineage.Original(s.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n",
				session.IDFromPath(orig), orig)
			return nil
		},
	}
	return cmd
}

func newFindDerivedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-derived [ref]",
		Short: "List sessions derived from a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			s, err := a.resolve(args)
			if err != nil {
				return err
			}
			derived := lineage.Descendants(a.store, s.Path)
			if len(derived) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no derived sessions")
				return nil
			}
			printSessions(cmd.OutOrStdout(), derived)
			return nil
		},
	}
	return cmd
}

func printSessions(w io.Writer, sessions []session.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODIFIED\tAGENT\tSESSION\tLINES\tFIRST MESSAGE")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.ModifiedAt.Local().Format("2006-01-02 15:04"),
			s.Agent, s.ID, s.LineCount, oneLine(s.FirstUserMessage, 60))
	}
	tw.Flush()
}

// oneLine collapses s to a single line of at most max runes.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
