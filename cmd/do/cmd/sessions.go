package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nzoschke/studyvault/internal/app"
	"github.com/spf13/cobra"
)

func SessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance commands",
	}

	cmd.AddCommand(sessionsCleanupCmd())
	return cmd
}

func sessionsCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete revoked and expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				removed, err := a.CleanupSessions(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d sessions\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "only delete sessions that ended at least this long ago")
	return cmd
}
