// Command syncassets copies the campaign email folders into the
// project's public directory so the review server can serve them.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/welldanyogia/rampup-email-reviewer/internal/assets"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncassets",
		Short: "Copy campaign email folders into public/",
		Long: `Copy the campaign email folders from the source root into
{project}/public/, overwriting existing files.

Folders missing from the source root are skipped with a warning.
Any copy failure aborts with a non-zero exit status.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			project, _ := cmd.Flags().GetString("project")
			level, _ := cmd.Flags().GetString("log-level")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger.NewWithWriter(cmd.ErrOrStderr(), level)
			publicDir := filepath.Join(project, "public")

			_, err := assets.Sync(ctx, source, publicDir, catalog.Default().Folders(), log)
			return err
		},
	}

	cmd.Flags().String("source", "..", "directory holding the campaign email folders")
	cmd.Flags().String("project", ".", "project root; files land in {project}/public")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}
