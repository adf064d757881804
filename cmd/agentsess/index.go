package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentsess/agentsess/internal/index"
)

func newIndexCmd() *cobra.Command {
	var (
		force        bool
		fromSessions bool
		watch        bool
		debounce     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the full-text search index",
		Long: "index scans exported session files (or, with " +
			"--from-sessions, the raw session files) into a local " +
			"SQLite FTS index used by the search command.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ix, err := index.Open(a.cfg.IndexDir(), a.log)
			if err != nil {
				return err
			}
			defer ix.Close()

			root := a.exportRoot()
			rebuild := func(forced bool) error {
				var (
					stats index.BuildStats
					err   error
				)
				if fromSessions {
					stats, err = ix.BuildFromSessions(a.store, forced)
				} else {
					stats, err = ix.BuildFromExports(root, forced)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), stats.String())
				return nil
			}
			if err := rebuild(force); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			w, err := index.NewWatcher(debounce, a.log, func(paths []string) {
				a.log.Info("re-indexing", "changed", len(paths))
				if err := rebuild(false); err != nil {
					a.log.Warn("re-index failed", "error", err)
				}
			})
			if err != nil {
				return err
			}
			watched, _, err := w.WatchRecursive(root)
			if err != nil {
				return err
			}
			a.log.Info("watching for export changes",
				"root", root, "dirs", watched)
			w.Start()
			defer w.Stop()

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"re-index every file regardless of mtime")
	cmd.Flags().BoolVar(&fromSessions, "from-sessions", false,
		"index raw session files instead of exports")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false,
		"keep running and re-index when exports change")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second,
		"settle time before a watched change triggers re-indexing")
	return cmd
}
