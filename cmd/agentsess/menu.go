package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/session"
)

func newMenuCmd() *cobra.Command {
	var (
		flags     findFlags
		shellMode bool
	)
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Pick a session interactively and print its resume command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			sessions := a.store.Discover(flags.filter(a))
			if flags.limit > 0 && len(sessions) > flags.limit {
				sessions = sessions[:flags.limit]
			}
			if len(sessions) == 0 {
				return fmt.Errorf("no sessions to choose from")
			}

			options := make([]huh.Option[int], len(sessions))
			for i, s := range sessions {
				options[i] = huh.NewOption(menuLabel(s), i)
			}

			var picked int
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewSelect[int]().
						Title("Select a session to resume").
						Options(options...).
						Value(&picked),
				),
			)
			if shellMode {
				form = form.WithOutput(cmd.ErrOrStderr())
			}
			if err := form.Run(); err != nil {
				return err
			}

			s := sessions[picked]
			if shellMode {
				printShellCommands(cmd, s.CWD, resumeCommand(s))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resumeCommand(s))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&shellMode, "shell", false,
		"print cd and resume commands on stdout for eval")
	return cmd
}

func menuLabel(s session.Session) string {
	return fmt.Sprintf("%s  [%s]  %s  %s",
		s.ModifiedAt.Local().Format("Jan 02 15:04"),
		s.Agent, s.ID[:min(8, len(s.ID))],
		oneLine(s.FirstUserMessage, 50))
}
