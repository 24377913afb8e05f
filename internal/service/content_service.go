package service

import (
	"context"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/retry"
	"socialhub/internal/validation"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	maxCaptionLen = 2200
	maxBodyLen    = 10000
)

// ContentService manages posts and stories.
type ContentService struct {
	settings
	posts      repository.PostRepository
	stories    repository.StoryRepository
	edges      repository.EdgeRepository
	identities repository.IdentityRepository
	log        *observability.ServiceLogger
}

// CreatePostInput is a new post by AuthorID.
type CreatePostInput struct {
	AuthorID uint
	Kind     models.PostKind
	Body     string
	Caption  string
}

// NewContentService returns a new ContentService.
func NewContentService(
	posts repository.PostRepository,
	stories repository.StoryRepository,
	edges repository.EdgeRepository,
	identities repository.IdentityRepository,
	opts ...Option,
) *ContentService {
	return &ContentService{
		settings:   newSettings(opts),
		posts:      posts,
		stories:    stories,
		edges:      edges,
		identities: identities,
		log:        observability.NewServiceLogger("content"),
	}
}

// CreatePost validates and stores a post. Image posts carry an image
// reference in Body; text posts carry the text.
func (s *ContentService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if !in.Kind.Valid() {
		return nil, models.NewValidationError("kind must be one of: image text")
	}
	if err := validation.MaxLength("Caption", in.Caption, maxCaptionLen); err != nil {
		return nil, err
	}

	var body string
	switch in.Kind {
	case models.PostKindImage:
		if err := validation.ValidateImageRef(in.Body); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		body = in.Body
	case models.PostKindText:
		var err error
		if body, err = validation.Text("Body", in.Body, maxBodyLen); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		AuthorID:  in.AuthorID,
		Kind:      in.Kind,
		Body:      body,
		Caption:   in.Caption,
		CreatedAt: s.now().UTC(),
	}
	err := retry.Do(ctx, s.policy, "post.create", func(ctx context.Context) error {
		return s.posts.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost returns the post with live counts and viewerID's liked flag.
func (s *ContentService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return retry.Value(ctx, s.policy, "post.get", func(ctx context.Context) (*models.Post, error) {
		return s.posts.GetByID(ctx, id, viewerID)
	})
}

// ListPostsByAuthor returns the author's posts, newest first.
func (s *ContentService) ListPostsByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return retry.Value(ctx, s.policy, "post.list_by_author", func(ctx context.Context) ([]*models.Post, error) {
		return s.posts.ListByAuthor(ctx, authorID, limit, offset, viewerID)
	})
}

// DeletePost removes a post. Only its author may do so.
func (s *ContentService) DeletePost(ctx context.Context, actorID, postID uint) error {
	post, err := s.GetPost(ctx, postID, 0)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return models.NewPermissionDeniedError("You can only delete your own posts")
	}
	return retry.Do(ctx, s.policy, "post.delete", func(ctx context.Context) error {
		return s.posts.Delete(ctx, postID)
	})
}

// CreateStory stores a story that expires StoryLifetime after now.
func (s *ContentService) CreateStory(ctx context.Context, actorID uint, imageRef string) (*models.Story, error) {
	if err := validation.ValidateImageRef(imageRef); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	now := s.now().UTC()
	story := &models.Story{
		ID:        uuid.NewString(),
		AuthorID:  actorID,
		ImageRef:  imageRef,
		CreatedAt: now,
		ExpiresAt: now.Add(models.StoryLifetime),
	}
	err := retry.Do(ctx, s.policy, "story.create", func(ctx context.Context) error {
		return s.stories.Create(ctx, story)
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

// ListActiveStories returns the unexpired stories of viewerID and everyone
// viewerID follows, newest first. Stories of missing authors are skipped.
func (s *ContentService) ListActiveStories(ctx context.Context, viewerID uint) ([]models.StoryItem, error) {
	following, err := retry.Value(ctx, s.policy, "edge.following_ids", func(ctx context.Context) ([]uint, error) {
		return s.edges.FollowingIDs(ctx, viewerID)
	})
	if err != nil {
		return nil, err
	}
	authorIDs := lo.Uniq(append(following, viewerID))
	now := s.now().UTC()

	stories, err := retry.Value(ctx, s.policy, "story.list_active", func(ctx context.Context) ([]*models.Story, error) {
		return s.stories.ListActive(ctx, authorIDs, now)
	})
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return []models.StoryItem{}, nil
	}

	summaries, err := retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
		return s.identities.GetSummaries(ctx, lo.Uniq(lo.Map(stories, func(st *models.Story, _ int) uint { return st.AuthorID })))
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.StoryItem, 0, len(stories))
	for _, st := range stories {
		if !st.ActiveAt(now) {
			continue
		}
		author, ok := summaries[st.AuthorID]
		if !ok {
			observability.FeedItemsSkipped.WithLabelValues("story_author_missing").Inc()
			continue
		}
		items = append(items, models.StoryItem{Story: *st, Author: author})
	}
	return items, nil
}

// SweepExpiredStories deletes stories that expired before now and returns their IDs.
func (s *ContentService) SweepExpiredStories(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := retry.Value(ctx, s.policy, "story.sweep", func(ctx context.Context) ([]string, error) {
		return s.stories.DeleteExpired(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		observability.StoriesSwept.Add(float64(len(ids)))
		s.log.Info(ctx, "expired stories swept", map[string]any{"count": len(ids)})
	}
	return ids, nil
}
