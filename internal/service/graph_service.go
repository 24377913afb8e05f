package service

import (
	"context"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/retry"
)

// GraphService maintains the directed follow graph.
type GraphService struct {
	settings
	edges         repository.EdgeRepository
	identities    repository.IdentityRepository
	notifications *NotificationService
	log           *observability.ServiceLogger
}

// NewGraphService returns a new GraphService.
func NewGraphService(
	edges repository.EdgeRepository,
	identities repository.IdentityRepository,
	notifications *NotificationService,
	opts ...Option,
) *GraphService {
	return &GraphService{
		settings:      newSettings(opts),
		edges:         edges,
		identities:    identities,
		notifications: notifications,
		log:           observability.NewServiceLogger("graph"),
	}
}

func (s *GraphService) requireIdentity(ctx context.Context, id uint) error {
	summaries, err := retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
		return s.identities.GetSummaries(ctx, []uint{id})
	})
	if err != nil {
		return err
	}
	if _, ok := summaries[id]; !ok {
		return models.NewNotFoundError("Identity", id)
	}
	return nil
}

// Follow makes actorID follow targetID. Following an already-followed identity
// is a no-op; only a real transition notifies the target.
func (s *GraphService) Follow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, models.NewValidationError("You cannot follow yourself")
	}
	if err := s.requireIdentity(ctx, targetID); err != nil {
		return false, err
	}

	created, err := retry.Value(ctx, s.policy, "edge.follow", func(ctx context.Context) (bool, error) {
		return s.edges.Follow(ctx, actorID, targetID)
	})
	if err != nil {
		return false, err
	}
	if created {
		observability.EngagementEvents.WithLabelValues("follow").Inc()
		s.notifications.Emit(ctx, NotificationEvent{
			Kind:     models.NotificationFollow,
			ActorID:  actorID,
			TargetID: targetID,
		})
	}
	return created, nil
}

// Unfollow removes the edge from both sets. It is a no-op when absent.
func (s *GraphService) Unfollow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, models.NewValidationError("You cannot unfollow yourself")
	}
	removed, err := retry.Value(ctx, s.policy, "edge.unfollow", func(ctx context.Context) (bool, error) {
		return s.edges.Unfollow(ctx, actorID, targetID)
	})
	if err != nil {
		return false, err
	}
	if removed {
		observability.EngagementEvents.WithLabelValues("unfollow").Inc()
	}
	return removed, nil
}

// IsFollowing reports whether actorID follows targetID. A torn pair is a
// conflict that is repaired in place before answering.
func (s *GraphService) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	state, err := retry.Value(ctx, s.policy, "edge.state", func(ctx context.Context) (models.EdgeState, error) {
		return s.edges.State(ctx, actorID, targetID)
	})
	if err != nil {
		return false, err
	}
	if state.Symmetric() {
		return state.Following, nil
	}

	conflict := models.NewConflictError("follow edge is asymmetric", nil)
	s.log.Warn(ctx, "repairing follow edge", map[string]any{
		"follower_id": actorID,
		"target_id":   targetID,
		"following":   state.Following,
		"follower":    state.Follower,
		"error":       conflict.Error(),
	})
	repaired, err := retry.Value(ctx, s.policy, "edge.repair", func(ctx context.Context) (models.EdgeState, error) {
		return s.edges.RepairPair(ctx, actorID, targetID)
	})
	if err != nil {
		return false, err
	}
	return repaired.Following, nil
}

// ListFollowers returns the identities following id, most recent first.
func (s *GraphService) ListFollowers(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error) {
	if err := s.requireIdentity(ctx, id); err != nil {
		return nil, err
	}
	return retry.Value(ctx, s.policy, "edge.list_followers", func(ctx context.Context) ([]*models.Identity, error) {
		return s.edges.ListFollowers(ctx, id, limit, offset)
	})
}

// ListFollowing returns the identities id follows, most recent first.
func (s *GraphService) ListFollowing(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error) {
	if err := s.requireIdentity(ctx, id); err != nil {
		return nil, err
	}
	return retry.Value(ctx, s.policy, "edge.list_following", func(ctx context.Context) ([]*models.Identity, error) {
		return s.edges.ListFollowing(ctx, id, limit, offset)
	})
}

// FollowingIDs returns the IDs id follows.
func (s *GraphService) FollowingIDs(ctx context.Context, id uint) ([]uint, error) {
	return retry.Value(ctx, s.policy, "edge.following_ids", func(ctx context.Context) ([]uint, error) {
		return s.edges.FollowingIDs(ctx, id)
	})
}

// Reconcile repairs every asymmetric pair, treating the following set as the truth.
func (s *GraphService) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	report, err := retry.Value(ctx, s.policy, "edge.reconcile", func(ctx context.Context) (models.ReconcileReport, error) {
		return s.edges.Reconcile(ctx)
	})
	if err != nil {
		return models.ReconcileReport{}, err
	}
	if report.Repaired() > 0 {
		s.log.Warn(ctx, "follow graph reconciled", map[string]any{
			"mirrors_inserted": report.MirrorsInserted,
			"orphans_removed":  report.OrphansRemoved,
		})
	}
	return report, nil
}
