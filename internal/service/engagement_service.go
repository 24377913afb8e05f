package service

import (
	"context"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
	"socialhub/internal/retry"
	"socialhub/internal/validation"
)

const maxCommentLen = 2200

// EngagementService owns likes and comments on posts.
type EngagementService struct {
	settings
	posts         repository.PostRepository
	likes         repository.LikeRepository
	comments      repository.CommentRepository
	identities    repository.IdentityRepository
	notifications *NotificationService
}

// NewEngagementService returns a new EngagementService.
func NewEngagementService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	identities repository.IdentityRepository,
	notifications *NotificationService,
	opts ...Option,
) *EngagementService {
	return &EngagementService{
		settings:      newSettings(opts),
		posts:         posts,
		likes:         likes,
		comments:      comments,
		identities:    identities,
		notifications: notifications,
	}
}

func (s *EngagementService) getPost(ctx context.Context, postID uint) (*models.Post, error) {
	return retry.Value(ctx, s.policy, "post.get", func(ctx context.Context) (*models.Post, error) {
		return s.posts.GetByID(ctx, postID, 0)
	})
}

// Like adds actorID to the post's like set. Liking twice is a no-op and only
// the first like notifies the author.
func (s *EngagementService) Like(ctx context.Context, postID, actorID uint) (bool, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return false, err
	}

	added, err := retry.Value(ctx, s.policy, "like.add", func(ctx context.Context) (bool, error) {
		return s.likes.Like(ctx, postID, actorID)
	})
	if err != nil {
		return false, err
	}
	if added {
		observability.EngagementEvents.WithLabelValues("like").Inc()
		s.notifications.Emit(ctx, NotificationEvent{
			Kind:          models.NotificationLike,
			ActorID:       actorID,
			TargetID:      post.AuthorID,
			SubjectPostID: &post.ID,
		})
	}
	return added, nil
}

// Unlike removes actorID from the like set. It is a no-op when absent.
func (s *EngagementService) Unlike(ctx context.Context, postID, actorID uint) (bool, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return false, err
	}
	removed, err := retry.Value(ctx, s.policy, "like.remove", func(ctx context.Context) (bool, error) {
		return s.likes.Unlike(ctx, postID, actorID)
	})
	if err != nil {
		return false, err
	}
	if removed {
		observability.EngagementEvents.WithLabelValues("unlike").Inc()
	}
	return removed, nil
}

// AddComment appends a comment, freezing the actor's current username on it.
func (s *EngagementService) AddComment(ctx context.Context, postID, actorID uint, text string) (*models.Comment, error) {
	text, err := validation.Text("Comment", text, maxCommentLen)
	if err != nil {
		return nil, err
	}
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	summaries, err := retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
		return s.identities.GetSummaries(ctx, []uint{actorID})
	})
	if err != nil {
		return nil, err
	}
	actor, ok := summaries[actorID]
	if !ok {
		return nil, models.NewNotFoundError("Identity", actorID)
	}

	comment := &models.Comment{
		PostID:         postID,
		AuthorID:       actorID,
		AuthorUsername: actor.Username,
		Text:           text,
		CreatedAt:      s.now().UTC(),
	}
	err = retry.Do(ctx, s.policy, "comment.create", func(ctx context.Context) error {
		return s.comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	observability.EngagementEvents.WithLabelValues("comment").Inc()
	s.notifications.Emit(ctx, NotificationEvent{
		Kind:          models.NotificationComment,
		ActorID:       actorID,
		TargetID:      post.AuthorID,
		SubjectPostID: &post.ID,
	})
	return comment, nil
}

// DeleteComment removes a comment from postID. Only its author may do so.
func (s *EngagementService) DeleteComment(ctx context.Context, postID, commentID, actorID uint) error {
	comment, err := retry.Value(ctx, s.policy, "comment.get", func(ctx context.Context) (*models.Comment, error) {
		return s.comments.GetByID(ctx, commentID)
	})
	if err != nil {
		return err
	}
	if comment.PostID != postID {
		return models.NewNotFoundError("Comment", commentID)
	}
	if comment.AuthorID != actorID {
		return models.NewPermissionDeniedError("You can only delete your own comments")
	}
	return retry.Do(ctx, s.policy, "comment.delete", func(ctx context.Context) error {
		return s.comments.Delete(ctx, commentID)
	})
}

// ListComments returns the post's comments, newest first.
func (s *EngagementService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	return retry.Value(ctx, s.policy, "comment.list", func(ctx context.Context) ([]*models.Comment, error) {
		return s.comments.ListByPost(ctx, postID, limit, offset)
	})
}

// LikeCount is the size of the post's like set.
func (s *EngagementService) LikeCount(ctx context.Context, postID uint) (int64, error) {
	return retry.Value(ctx, s.policy, "like.count", func(ctx context.Context) (int64, error) {
		return s.likes.Count(ctx, postID)
	})
}

// CommentCount is the length of the post's comment log.
func (s *EngagementService) CommentCount(ctx context.Context, postID uint) (int64, error) {
	return retry.Value(ctx, s.policy, "comment.count", func(ctx context.Context) (int64, error) {
		return s.comments.Count(ctx, postID)
	})
}

// HasLiked reports whether actorID is in the post's like set.
func (s *EngagementService) HasLiked(ctx context.Context, postID, actorID uint) (bool, error) {
	return retry.Value(ctx, s.policy, "like.has", func(ctx context.Context) (bool, error) {
		return s.likes.HasLiked(ctx, postID, actorID)
	})
}

// ListLikers returns identities that liked the post, most recent first.
func (s *EngagementService) ListLikers(ctx context.Context, postID uint, limit, offset int) ([]*models.Identity, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}
	return retry.Value(ctx, s.policy, "like.list", func(ctx context.Context) ([]*models.Identity, error) {
		return s.likes.ListLikers(ctx, postID, limit, offset)
	})
}
