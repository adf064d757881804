package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/derive"
)

func newCloneCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "clone [ref]",
		Short: "Copy a session under a fresh identity",
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
			res, err := derive.Clone(s.Path, outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n",
				res.SessionID, res.OutputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"directory for the cloned session file")
	return cmd
}
