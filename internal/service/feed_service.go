package service

import (
	"context"
	"time"

	"socialhub/internal/featureflags"
	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/retry"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultFeedWindow is used when a feed query gives no bounds.
const DefaultFeedWindow = 24 * time.Hour

// FeedQuery selects posts created within [WindowStart, WindowEnd].
type FeedQuery struct {
	ViewerID    uint
	WindowStart time.Time
	WindowEnd   time.Time
	// FollowingOnly restricts authors to those the viewer follows plus the
	// viewer. Nil falls back to the feed_following_only flag.
	FollowingOnly *bool
	Limit         int
}

// Feed is an assembled feed page.
type Feed struct {
	Items       []models.FeedItem  `json:"items"`
	Stories     []models.StoryItem `json:"stories,omitempty"`
	WindowStart time.Time          `json:"window_start"`
	WindowEnd   time.Time          `json:"window_end"`
}

// FeedService joins posts with live author data and engagement counts.
type FeedService struct {
	settings
	posts      repository.PostRepository
	edges      repository.EdgeRepository
	identities repository.IdentityRepository
	content    *ContentService
	flags      FlagSource
	log        *observability.ServiceLogger
}

// NewFeedService returns a new FeedService.
func NewFeedService(
	posts repository.PostRepository,
	edges repository.EdgeRepository,
	identities repository.IdentityRepository,
	content *ContentService,
	flags FlagSource,
	opts ...Option,
) *FeedService {
	return &FeedService{
		settings:   newSettings(opts),
		posts:      posts,
		edges:      edges,
		identities: identities,
		content:    content,
		flags:      flags,
		log:        observability.NewServiceLogger("feed"),
	}
}

func (s *FeedService) window(q FeedQuery) (time.Time, time.Time, error) {
	start, end := q.WindowStart.UTC(), q.WindowEnd.UTC()
	if q.WindowEnd.IsZero() {
		end = s.now().UTC()
	}
	if q.WindowStart.IsZero() {
		start = end.Add(-DefaultFeedWindow)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, models.NewValidationError("Feed window start must not be after its end")
	}
	return start, end, nil
}

// GetFeed returns posts in the query window, newest first, with each author's
// current username and photo. Posts whose author no longer exists are
// skipped with a warning; the rest of the feed is still returned.
func (s *FeedService) GetFeed(ctx context.Context, q FeedQuery) (*Feed, error) {
	span, ctx := observability.NewSpan(ctx, "feed.assemble")
	defer span.End()

	start, end, err := s.window(q)
	if err != nil {
		return nil, err
	}

	followingOnly := flagOn(s.flags, featureflags.FeedFollowingOnly, q.ViewerID)
	if q.FollowingOnly != nil {
		followingOnly = *q.FollowingOnly
	}

	wq := repository.WindowQuery{Start: start, End: end, Limit: q.Limit, ViewerID: q.ViewerID}
	if followingOnly {
		following, err := retry.Value(ctx, s.policy, "edge.following_ids", func(ctx context.Context) ([]uint, error) {
			return s.edges.FollowingIDs(ctx, q.ViewerID)
		})
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		wq.AuthorIDs = lo.Uniq(append(following, q.ViewerID))
	}

	posts, err := retry.Value(ctx, s.policy, "post.list_window", func(ctx context.Context) ([]*models.Post, error) {
		return s.posts.ListWindow(ctx, wq)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	items, err := s.attachAuthors(ctx, posts)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(
		attribute.Int("feed.posts", len(posts)),
		attribute.Int("feed.items", len(items)),
		attribute.Bool("feed.following_only", followingOnly),
	)

	feed := &Feed{Items: items, WindowStart: start, WindowEnd: end}
	if s.content != nil && flagOn(s.flags, featureflags.StoriesInFeed, q.ViewerID) {
		stories, err := s.content.ListActiveStories(ctx, q.ViewerID)
		if err != nil {
			// the story bar is optional, the posts are not
			s.log.Warn(ctx, "feed stories unavailable", map[string]any{"viewer_id": q.ViewerID, "error": err.Error()})
		} else {
			feed.Stories = stories
		}
	}
	return feed, nil
}

func (s *FeedService) attachAuthors(ctx context.Context, posts []*models.Post) ([]models.FeedItem, error) {
	items := make([]models.FeedItem, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	authorIDs := lo.Uniq(lo.Map(posts, func(p *models.Post, _ int) uint { return p.AuthorID }))
	authors, err := retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
		return s.identities.GetSummaries(ctx, authorIDs)
	})
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			observability.FeedItemsSkipped.WithLabelValues("author_missing").Inc()
			s.log.Warn(ctx, "feed post skipped: author missing", map[string]any{
				"post_id":   p.ID,
				"author_id": p.AuthorID,
			})
			continue
		}
		items = append(items, models.FeedItem{Post: *p, Author: author})
	}
	return items, nil
}
