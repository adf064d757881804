package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/continuation"
	"github.com/agentsess/agentsess/internal/session"
)

func newContinueCmd() *cobra.Command {
	var (
		target       string
		instructions string
		shellMode    bool
	)
	cmd := &cobra.Command{
		Use:   "continue [ref]",
		Short: "Hand a session over to a fresh one with full context",
		Long: "continue exports the session's whole lineage, starts a " +
			"new session (optionally in the other agent), seeds it with " +
			"a summary of the exported logs, and attaches to it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			s, err := a.resolve(args)
			if err != nil {
				return err
			}

			res, err := continuation.Continue(cmd.Context(), s,
				continuation.Options{
					Target:        session.Agent(strings.ToLower(target)),
					Instructions:  instructions,
					ExportRoot:    a.cfg.ExportDir,
					AnalysisModel: a.cfg.RolloverAnalysisModel,
					DefaultModel:  a.cfg.RolloverDefaultModel,
					Launcher:      a.cfg.Launcher,
					ClaudeHome:    a.cfg.ClaudeHome,
					CodexHome:     a.cfg.CodexHome,
					CWD:           a.cwd,
					Log:           a.log,
				})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(),
				"continuing as %s session %s (%d exported logs)\n",
				res.Agent, res.NewSessionID, len(res.Exports))

			if shellMode {
				printShellCommands(cmd, s.CWD,
					strings.Join(quoteArgv(res.AttachArgv), " "))
				return nil
			}
			return attach(cmd.Context(), s.CWD, res.AttachArgv)
		},
	}
	cmd.Flags().StringVar(&target, "agent", "",
		"agent to continue in (claude or codex, default: the session's)")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "",
		"extra guidance for the context summary")
	cmd.Flags().BoolVar(&shellMode, "shell", false,
		"print cd and attach commands on stdout for eval")
	return cmd
}

func quoteArgv(argv []string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		if strings.ContainsAny(arg, " '\"$&|;<>()*?!~`") {
			arg = continuation.ShellQuote(arg)
		}
		out[i] = arg
	}
	return out
}
