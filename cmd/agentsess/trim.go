package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/derive"
)

func newTrimCmd() *cobra.Command {
	var (
		tools     []string
		threshold int
		assistant int
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "trim [ref]",
		Short: "Write a size-reduced copy of a session",
		Long: "trim replaces oversized tool results (and optionally " +
			"assistant messages) with placeholders, writing the result " +
			"as a new session with fresh identity.",
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

			opts := derive.TrimOptions{
				Tools:     tools,
				Threshold: threshold,
				OutputDir: outputDir,
			}
			if cmd.Flags().Changed("assistant-messages") {
				opts.AssistantMessages = &assistant
			}

			res, err := derive.Trim(s.Path, opts)
			if err != nil {
				return err
			}
			printDerived(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tools, "tool", "t", nil,
		"only trim results of these tools")
	cmd.Flags().IntVar(&threshold, "threshold", 0,
		"minimum content length to trim (default 500)")
	cmd.Flags().IntVar(&assistant, "assistant-messages", 0,
		"trim the first N qualifying assistant messages (negative: all but the last N)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"directory for the derived session file")
	return cmd
}

func printDerived(cmd *cobra.Command, res derive.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\t%s\n", res.SessionID, res.OutputFile)
	fmt.Fprintf(cmd.ErrOrStderr(),
		"trimmed %d tool results, %d assistant messages (~%d tokens saved)\n",
		res.ToolsTrimmed, res.AssistantTrimmed, res.TokensSaved)
}
