package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/config"
	"github.com/agentsess/agentsess/internal/logging"
	"github.com/agentsess/agentsess/internal/session"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentsess",
		Short: "Manage Claude Code and Codex session files",
		Long: "agentsess finds, trims, exports, indexes, and resumes " +
			"coding-agent sessions stored as JSONL files under the " +
			"claude and codex home directories.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "enable debug logging")
	pf.String("claude-home", "", "claude home directory override")
	pf.String("codex-home", "", "codex home directory override")
	pf.String("export-dir", "", "export root override")
	pf.String("subagent-model", "", "model for analysis workers")

	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newFindAgentCmd(session.AgentClaude))
	cmd.AddCommand(newFindAgentCmd(session.AgentCodex))
	cmd.AddCommand(newFindOriginalCmd())
	cmd.AddCommand(newFindDerivedCmd())
	cmd.AddCommand(newMenuCmd())
	cmd.AddCommand(newTrimCmd())
	cmd.AddCommand(newSmartTrimCmd())
	cmd.AddCommand(newCloneCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newExportAgentCmd(session.AgentClaude))
	cmd.AddCommand(newExportAgentCmd(session.AgentCodex))
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newContinueCmd())
	cmd.AddCommand(newRepairCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())

	return cmd
}

// app carries the dependencies every subcommand shares.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	store *session.Store
	cwd   string
}

func newApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log := logging.New(verbose)

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	return &app{
		cfg:   cfg,
		log:   log,
		store: session.NewStore(cfg.ClaudeHome, cfg.CodexHome, log),
		cwd:   cwd,
	}, nil
}

// resolve turns the optional positional reference into a
// session. No reference means the newest session recorded for
// this working directory and git branch.
func (a *app) resolve(args []string) (session.Session, error) {
	if len(args) == 0 || args[0] == "" {
		s, err := a.store.Latest(session.Filter{
			CWD:           a.cwd,
			Branch:        session.CurrentBranch(a.cwd),
			SkipSidechain: true,
		})
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, fmt.Errorf(
				"no sessions recorded under %s", a.cwd)
		}
		return s, err
	}
	return a.store.Resolve(args[0], a.cwd)
}

// exportRoot is the concrete directory the index scans and
// watches: the configured export dir, else exported-sessions
// under the current directory.
func (a *app) exportRoot() string {
	if a.cfg.ExportDir != "" {
		return a.cfg.ExportDir
	}
	return filepath.Join(a.cwd, "exported-sessions")
}
