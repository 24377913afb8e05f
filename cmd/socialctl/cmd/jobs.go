package cmd

import (
	"context"
	"time"

	"socialhub/internal/bootstrap"
	"socialhub/internal/jobs"

	"github.com/spf13/cobra"
)

var (
	retentionDays int

	sweepStoriesCmd = &cobra.Command{
		Use:     "sweep-stories",
		Short:   "remove expired stories and old notifications once",
		PreRunE: loadConfig,
		RunE:    runSweepStories,
	}

	reconcileEdgesCmd = &cobra.Command{
		Use:     "reconcile-edges",
		Short:   "repair asymmetric follow edges once",
		PreRunE: loadConfig,
		RunE:    runReconcileEdges,
	}
)

func init() {
	sweepStoriesCmd.Flags().IntVar(&retentionDays, "retention-days", -1,
		"notification retention; -1 uses NOTIFICATION_RETENTION_DAYS, 0 keeps everything")
}

func runSweepStories(cmd *cobra.Command, _ []string) error {
	days := retentionDays
	if days < 0 {
		days = cfg.NotificationRetentionDays
	}
	return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime) error {
		return jobs.RunOnce(ctx, &jobs.StorySweeper{
			Stories:       rt.Services.Content,
			Notifications: rt.Services.Notifications,
			Retention:     time.Duration(days) * 24 * time.Hour,
		})
	})
}

func runReconcileEdges(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime) error {
		return jobs.RunOnce(ctx, &jobs.EdgeReconciler{Graph: rt.Services.Graph})
	})
}
