package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete [ref]",
		Short: "Delete a session file",
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

			if !force {
				var confirmed bool
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title(fmt.Sprintf("Delete session %s?", s.ID)).
							Description(s.Path).
							Value(&confirmed),
					),
				)
				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
					return nil
				}
			}

			if err := os.Remove(s.Path); err != nil {
				return fmt.Errorf("deleting session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\t%s\n", s.ID, s.Path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"delete without confirmation")
	return cmd
}
