package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nzoschke/studyvault/internal/app"
	"github.com/nzoschke/studyvault/internal/config"
	"github.com/nzoschke/studyvault/internal/logger"
	"github.com/spf13/cobra"
)

func OrphansCmd() *cobra.Command {
	var (
		remove bool
		grace  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Find blobs without a metadata record",
		Long:  "Walks the blob store and reports blobs no file record points at. Pass --remove to delete them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				report, err := a.OrphanSweeper(grace).Sweep(ctx, remove)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, blob := range report.Orphans {
					fmt.Fprintf(out, "%s/%s\t%d\t%s\n", blob.OwnerID, blob.StoredName, blob.Size, blob.ModTime.Format(time.RFC3339))
				}
				fmt.Fprintf(out, "scanned %d, skipped %d, orphans %d, removed %d\n",
					report.Scanned, report.Skipped, len(report.Orphans), report.Removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "delete orphan blobs instead of only listing them")
	cmd.Flags().DurationVar(&grace, "grace", time.Hour, "ignore blobs modified more recently than this")
	return cmd
}

// withApp builds the full application from the environment
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(ctx, a)
}
