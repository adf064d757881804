package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/analysis"
	"github.com/agentsess/agentsess/internal/derive"
	"github.com/agentsess/agentsess/internal/session"
)

func newSmartTrimCmd() *cobra.Command {
	var (
		instructions   string
		excludeTypes   []string
		preserveRecent int
		preserveHead   int
		chunkSize      int
		model          string
		analysisAgent  string
		outputDir      string
	)
	cmd := &cobra.Command{
		Use:   "smart-trim [ref]",
		Short: "Trim a session using model-judged relevance",
		Long: "smart-trim asks an agent CLI which lines of the session " +
			"are safe to drop, then writes a reduced copy. Recent and " +
			"leading lines are always preserved.",
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

			if model == "" {
				model = a.cfg.SubagentModel
			}
			if analysisAgent == "" {
				analysisAgent = string(s.Agent)
			}
			aopts := analysis.Options{
				Model:      model,
				CWD:        a.cwd,
				ClaudeHome: a.cfg.ClaudeHome,
				CodexHome:  a.cfg.CodexHome,
				Log:        a.log,
			}
			var an derive.Analyzer
			if analysisAgent == string(session.AgentCodex) {
				an = &analysis.CodexAnalyzer{Options: aopts}
			} else {
				an = &analysis.ClaudeAnalyzer{Options: aopts}
			}

			res, err := derive.SmartTrim(cmd.Context(), s.Path, an,
				derive.SmartTrimOptions{
					Instructions:   instructions,
					ExcludeTypes:   excludeTypes,
					PreserveRecent: preserveRecent,
					PreserveHead:   preserveHead,
					ChunkSize:      chunkSize,
					OutputDir:      outputDir,
					AnalysisAgent:  analysisAgent,
				})
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Fprintln(cmd.ErrOrStderr(),
					"nothing worth trimming; no file written")
				return nil
			}
			printDerived(cmd, *res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "",
		"extra guidance for the trim analysis")
	cmd.Flags().StringSliceVar(&excludeTypes, "exclude-type", nil,
		"content types never trimmed (tool_result, assistant)")
	cmd.Flags().IntVar(&preserveRecent, "preserve-recent", 0,
		"always keep the last N lines (default 10, negative: none)")
	cmd.Flags().IntVar(&preserveHead, "preserve-head", 0,
		"always keep the first N lines")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0,
		"candidates per analysis chunk (default 100)")
	cmd.Flags().StringVar(&model, "model", "",
		"model for the analysis workers")
	cmd.Flags().StringVar(&analysisAgent, "agent", "",
		"CLI running the analysis (claude or codex, default: the session's)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"directory for the derived session file")
	return cmd
}
