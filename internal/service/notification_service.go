package service

import (
	"context"
	"time"

	"socialhub/internal/cache"
	"socialhub/internal/featureflags"
	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/retry"

	"github.com/samber/lo"
)

const (
	newWindow      = 24 * time.Hour
	lastWeekWindow = 7 * 24 * time.Hour

	// emitTimeout bounds fan-out once it is detached from the caller.
	emitTimeout = 5 * time.Second

	unknownActorName = "unknown"
)

// NotificationPublisher relays a stored notification to a live channel.
type NotificationPublisher interface {
	Channel() string
	PublishNotification(ctx context.Context, n *models.NotificationView) error
}

// NotificationEvent describes one engagement transition to fan out.
type NotificationEvent struct {
	Kind          models.NotificationKind
	ActorID       uint
	TargetID      uint
	SubjectPostID *uint
}

// NotificationService stores and lists notifications and fans them out.
type NotificationService struct {
	settings
	notifications repository.NotificationRepository
	identities    repository.IdentityRepository
	flags         FlagSource
	publishers    []NotificationPublisher
	log           *observability.ServiceLogger
}

// NewNotificationService returns a new NotificationService. Publishers are
// used only while the realtime_push flag is on for the target.
func NewNotificationService(
	notifications repository.NotificationRepository,
	identities repository.IdentityRepository,
	flags FlagSource,
	publishers []NotificationPublisher,
	opts ...Option,
) *NotificationService {
	return &NotificationService{
		settings:      newSettings(opts),
		notifications: notifications,
		identities:    identities,
		flags:         flags,
		publishers:    publishers,
		log:           observability.NewServiceLogger("notifications"),
	}
}

// Emit records ev for its target. It never fails the caller: self-notifications
// are skipped and errors are logged and counted. It runs on a context detached
// from the caller's cancellation.
func (s *NotificationService) Emit(ctx context.Context, ev NotificationEvent) {
	if s == nil {
		return
	}
	kind := string(ev.Kind)
	if ev.ActorID == ev.TargetID {
		observability.NotificationOutcomes.WithLabelValues(kind, "skipped_self").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	n := &models.Notification{
		TargetID:      ev.TargetID,
		ActorID:       ev.ActorID,
		SubjectPostID: ev.SubjectPostID,
		Kind:          ev.Kind,
		CreatedAt:     s.now().UTC(),
	}
	err := retry.Do(ctx, s.policy, "notification.create", func(ctx context.Context) error {
		return s.notifications.Create(ctx, n)
	})
	if err != nil {
		observability.NotificationOutcomes.WithLabelValues(kind, "failed").Inc()
		s.log.Warn(ctx, "notification dropped", map[string]any{
			"kind":      kind,
			"actor_id":  ev.ActorID,
			"target_id": ev.TargetID,
			"error":     err.Error(),
		})
		return
	}
	observability.NotificationOutcomes.WithLabelValues(kind, "emitted").Inc()
	cache.InvalidateUnread(ctx, ev.TargetID)

	if flagOn(s.flags, featureflags.RealtimePush, ev.TargetID) {
		s.publish(ctx, n)
	}
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if len(s.publishers) == 0 {
		return
	}
	views, err := s.resolveActors(ctx, []*models.Notification{n})
	if err != nil {
		s.log.Warn(ctx, "notification actor lookup failed", map[string]any{"notification_id": n.ID, "error": err.Error()})
		views = []models.NotificationView{{Notification: *n, Actor: unknownActor(n.ActorID)}}
	}
	for _, p := range s.publishers {
		if err := p.PublishNotification(ctx, &views[0]); err != nil {
			observability.NotificationDeliveries.WithLabelValues(p.Channel(), "failed").Inc()
			s.log.Warn(ctx, "notification publish failed", map[string]any{
				"channel":         p.Channel(),
				"notification_id": n.ID,
				"error":           err.Error(),
			})
			continue
		}
		observability.NotificationDeliveries.WithLabelValues(p.Channel(), "sent").Inc()
	}
}

// List returns the target's notifications from the last seven days, newest
// first, bucketed into New (under 24h) and LastWeek (24h to 7d).
func (s *NotificationService) List(ctx context.Context, targetID uint) (*models.NotificationGroups, error) {
	now := s.now().UTC()
	items, err := retry.Value(ctx, s.policy, "notification.list", func(ctx context.Context) ([]*models.Notification, error) {
		return s.notifications.ListSince(ctx, targetID, now.Add(-lastWeekWindow))
	})
	if err != nil {
		return nil, err
	}

	views, err := s.resolveActors(ctx, items)
	if err != nil {
		return nil, err
	}
	return groupByAge(views, now), nil
}

func groupByAge(views []models.NotificationView, now time.Time) *models.NotificationGroups {
	groups := &models.NotificationGroups{
		New:      []models.NotificationView{},
		LastWeek: []models.NotificationView{},
	}
	for _, v := range views {
		age := now.Sub(v.CreatedAt)
		switch {
		case age < newWindow:
			groups.New = append(groups.New, v)
		case age <= lastWeekWindow:
			groups.LastWeek = append(groups.LastWeek, v)
		}
	}
	return groups
}

func (s *NotificationService) resolveActors(ctx context.Context, items []*models.Notification) ([]models.NotificationView, error) {
	actorIDs := lo.Uniq(lo.Map(items, func(n *models.Notification, _ int) uint { return n.ActorID }))
	summaries, err := retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
		return s.identities.GetSummaries(ctx, actorIDs)
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(n *models.Notification, _ int) models.NotificationView {
		actor, ok := summaries[n.ActorID]
		if !ok {
			actor = unknownActor(n.ActorID)
		}
		return models.NotificationView{Notification: *n, Actor: actor}
	}), nil
}

func unknownActor(id uint) models.AuthorSummary {
	return models.AuthorSummary{ID: id, Username: unknownActorName}
}

// MarkRead marks one notification read. Only its target may do so.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, actorID uint) error {
	n, err := retry.Value(ctx, s.policy, "notification.get", func(ctx context.Context) (*models.Notification, error) {
		return s.notifications.GetByID(ctx, notificationID)
	})
	if err != nil {
		return err
	}
	if n.TargetID != actorID {
		return models.NewPermissionDeniedError("You can only mark your own notifications as read")
	}
	if n.Read {
		return nil
	}

	err = retry.Do(ctx, s.policy, "notification.mark_read", func(ctx context.Context) error {
		return s.notifications.MarkRead(ctx, notificationID)
	})
	if err != nil {
		return err
	}
	cache.InvalidateUnread(ctx, actorID)
	return nil
}

// MarkAllRead marks every unread notification of the actor read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actorID uint) (int64, error) {
	n, err := retry.Value(ctx, s.policy, "notification.mark_all_read", func(ctx context.Context) (int64, error) {
		return s.notifications.MarkAllRead(ctx, actorID)
	})
	if err != nil {
		return 0, err
	}
	cache.InvalidateUnread(ctx, actorID)
	return n, nil
}

// UnreadCount counts unread notifications in the seven-day view. It is cached briefly.
func (s *NotificationService) UnreadCount(ctx context.Context, actorID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadKey(actorID), &count, cache.UnreadTTL, func() error {
		var err error
		count, err = retry.Value(ctx, s.policy, "notification.unread_count", func(ctx context.Context) (int64, error) {
			return s.notifications.CountUnreadSince(ctx, actorID, s.now().UTC().Add(-lastWeekWindow))
		})
		return err
	})
	return count, err
}

// PurgeOlderThan deletes notifications created before cutoff.
func (s *NotificationService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return retry.Value(ctx, s.policy, "notification.purge", func(ctx context.Context) (int64, error) {
		return s.notifications.DeleteOlderThan(ctx, cutoff)
	})
}
