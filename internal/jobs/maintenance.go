package jobs

import (
	"context"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
)

// StoryStore is the part of the content service the sweeper drives.
type StoryStore interface {
	SweepExpiredStories(ctx context.Context, now time.Time) ([]string, error)
}

// NotificationStore is the part of the notification service the sweeper drives.
type NotificationStore interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GraphStore is the part of the graph service the reconciler drives.
type GraphStore interface {
	Reconcile(ctx context.Context) (models.ReconcileReport, error)
}

// StorySweeper physically removes expired stories and, when Retention is set,
// notifications older than Retention.
type StorySweeper struct {
	Stories       StoryStore
	Notifications NotificationStore
	Retention     time.Duration
	Now           func() time.Time
}

func (s *StorySweeper) Name() string { return "story_sweep" }

func (s *StorySweeper) Run(ctx context.Context) error {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}

	ids, err := s.Stories.SweepExpiredStories(ctx, now)
	if err != nil {
		return err
	}

	var purged int64
	if s.Notifications != nil && s.Retention > 0 {
		purged, err = s.Notifications.PurgeOlderThan(ctx, now.Add(-s.Retention))
		if err != nil {
			return err
		}
	}

	if len(ids) > 0 || purged > 0 {
		observability.GlobalLogger.InfoContext(ctx, "maintenance sweep",
			"stories_removed", len(ids),
			"notifications_purged", purged,
			"correlation_id", observability.ExtractCorrelationID(ctx),
		)
	}
	return nil
}

// EdgeReconciler repairs asymmetric follow edges left by torn writes.
type EdgeReconciler struct {
	Graph GraphStore
}

func (r *EdgeReconciler) Name() string { return "edge_reconcile" }

func (r *EdgeReconciler) Run(ctx context.Context) error {
	report, err := r.Graph.Reconcile(ctx)
	if err != nil {
		return err
	}
	if report.Repaired() > 0 {
		observability.GlobalLogger.WarnContext(ctx, "follow graph repaired",
			"mirrors_inserted", report.MirrorsInserted,
			"orphans_removed", report.OrphansRemoved,
			"correlation_id", observability.ExtractCorrelationID(ctx),
		)
	}
	return nil
}
