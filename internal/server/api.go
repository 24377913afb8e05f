package server

import (
	"context"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/service"
)

// The handler layer depends on these narrow views of the services so that
// handler tests can substitute mocks.

type IdentityAPI interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Identity, error)
	GetProfile(ctx context.Context, id uint) (*models.Identity, error)
	ResolveActorID(ctx context.Context, subject string) (uint, error)
	UpdateProfile(ctx context.Context, actorID, targetID uint, in service.UpdateProfileInput) (*models.Identity, error)
	SearchByUsername(ctx context.Context, prefix string, limit int) ([]*models.Identity, error)
}

type GraphAPI interface {
	Follow(ctx context.Context, actorID, targetID uint) (bool, error)
	Unfollow(ctx context.Context, actorID, targetID uint) (bool, error)
	IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error)
	ListFollowers(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error)
	ListFollowing(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error)
}

type ContentAPI interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error)
	DeletePost(ctx context.Context, actorID, postID uint) error
	CreateStory(ctx context.Context, actorID uint, imageRef string) (*models.Story, error)
	ListActiveStories(ctx context.Context, viewerID uint) ([]models.StoryItem, error)
}

type EngagementAPI interface {
	Like(ctx context.Context, postID, actorID uint) (bool, error)
	Unlike(ctx context.Context, postID, actorID uint) (bool, error)
	ListLikers(ctx context.Context, postID uint, limit, offset int) ([]*models.Identity, error)
	AddComment(ctx context.Context, postID, actorID uint, text string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, actorID uint) error
	ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error)
}

type NotificationAPI interface {
	List(ctx context.Context, targetID uint) (*models.NotificationGroups, error)
	UnreadCount(ctx context.Context, actorID uint) (int64, error)
	MarkRead(ctx context.Context, notificationID, actorID uint) error
	MarkAllRead(ctx context.Context, actorID uint) (int64, error)
}

type FeedAPI interface {
	GetFeed(ctx context.Context, q service.FeedQuery) (*service.Feed, error)
}

type SavedAPI interface {
	Save(ctx context.Context, ownerID uint, in service.SaveInput) (*models.SavedItem, bool, error)
	Unsave(ctx context.Context, ownerID uint, source models.SourceKind, ref string) (bool, error)
	ListSaved(ctx context.Context, ownerID uint, limit, offset int) ([]models.SavedView, error)
}

// FlagSnapshot is the admin view of the feature flags.
type FlagSnapshot interface {
	Raw() map[string]string
	Snapshot(userID uint) map[string]bool
}

// Services bundles the handler dependencies.
type Services struct {
	Identity      IdentityAPI
	Graph         GraphAPI
	Content       ContentAPI
	Engagement    EngagementAPI
	Notifications NotificationAPI
	Feed          FeedAPI
	Saved         SavedAPI
}

// nowUTC is swapped in tests that need stable timestamps.
var nowUTC = func() time.Time { return time.Now().UTC() }
