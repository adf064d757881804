package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/continuation"
	"github.com/agentsess/agentsess/internal/session"
)

func newResumeCmd() *cobra.Command {
	var shellMode bool
	cmd := &cobra.Command{
		Use:   "resume [ref]",
		Short: "Attach to a session in its agent's CLI",
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
			if s.IsSidechain {
				return fmt.Errorf(
					"%s is a sidechain and cannot be resumed", s.ID)
			}
			if shellMode {
				printShellCommands(cmd, s.CWD, resumeCommand(s))
				return nil
			}
			argv, err := resumeArgv(s, a.cfg.Launcher)
			if err != nil {
				return err
			}
			return attach(cmd.Context(), s.CWD, argv)
		},
	}
	cmd.Flags().BoolVar(&shellMode, "shell", false,
		"print cd and resume commands on stdout for eval")
	return cmd
}

// resumeArgv builds the interactive attach command for s.
func resumeArgv(s session.Session, launcher string) ([]string, error) {
	if s.Agent == session.AgentCodex {
		return []string{"codex", "resume", s.ID}, nil
	}
	return continuation.ShellArgv(launcher,
		"claude --resume "+continuation.ShellQuote(s.ID))
}

// resumeCommand renders the attach command as one shell line.
// The eval-ing shell is the user's own, so no launcher wrapper.
func resumeCommand(s session.Session) string {
	if s.Agent == session.AgentCodex {
		return "codex resume " + continuation.ShellQuote(s.ID)
	}
	return "claude --resume " + continuation.ShellQuote(s.ID)
}

// printShellCommands emits eval-able lines on stdout. The cd is
// skipped when the session has no recorded working directory.
func printShellCommands(cmd *cobra.Command, cwd, command string) {
	out := cmd.OutOrStdout()
	if cwd != "" {
		fmt.Fprintf(out, "cd %s\n", continuation.ShellQuote(cwd))
	}
	fmt.Fprintln(out, command)
}

// attach runs argv with inherited stdio from dir, propagating
// the child's exit code.
func attach(ctx context.Context, dir string, argv []string) error {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			c.Dir = dir
		}
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return &exitError{code: ee.ExitCode()}
		}
		return fmt.Errorf("running %s: %w",
			strings.Join(argv, " "), err)
	}
	return nil
}
