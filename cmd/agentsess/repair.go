package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/derive"
)

func newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair [ref]",
		Short: "Rewrite embedded session ids to match the filename",
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
			n, err := derive.Repair(s.Path)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "identity already consistent")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.Path)
			fmt.Fprintf(cmd.ErrOrStderr(), "rewrote %d lines\n", n)
			return nil
		},
	}
	return cmd
}
