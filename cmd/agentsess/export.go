package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/export"
	"github.com/agentsess/agentsess/internal/session"
)

// exportFlags are shared by export, export-claude, and
// export-codex.
type exportFlags struct {
	all    bool
	force  bool
	output string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.all, "all", "a", false,
		"export every matching session")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false,
		"rewrite exports even when up to date")
	cmd.Flags().StringVarP(&f.output, "output", "o", "",
		"destination file (single-session export only)")
}

func newExportCmd() *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export [ref]",
		Short: "Render a session as annotated text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, flags, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func newExportAgentCmd(agent session.Agent) *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export-" + string(agent),
		Short: fmt.Sprintf("Render %s sessions as annotated text", agent),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, flags, []session.Agent{agent})
		},
	}
	flags.register(cmd)
	return cmd
}

func runExport(
	cmd *cobra.Command, args []string,
	flags exportFlags, agents []session.Agent,
) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	opts := export.Options{
		Root:  a.cfg.ExportDir,
		Force: flags.force,
		Log:   a.log,
	}

	if flags.all {
		stats := export.ExportAll(a.store,
			session.Filter{Agents: agents, CWD: a.cwd}, opts)
		fmt.Fprintln(cmd.OutOrStdout(), stats.String())
		return nil
	}

	var s session.Session
	if len(args) == 0 && len(agents) > 0 {
		s, err = a.store.Latest(session.Filter{
			Agents:        agents,
			CWD:           a.cwd,
			Branch:        session.CurrentBranch(a.cwd),
			SkipSidechain: true,
		})
	} else {
		s, err = a.resolve(args)
	}
	if err != nil {
		return err
	}
	if len(agents) > 0 && s.Agent != agents[0] {
		return fmt.Errorf("%s is a %s session", s.ID, s.Agent)
	}

	opts.Dest = flags.output
	dest, written, err := export.Export(s.Path, s.Agent, opts)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintln(cmd.ErrOrStderr(), "export up to date:", dest)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), dest)
	return nil
}
