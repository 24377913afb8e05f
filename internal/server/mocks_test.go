package server

import (
	"context"
	"errors"

	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/stretchr/testify/mock"
)

type stubVerifier map[string]string

func (v stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if subject, ok := v[token]; ok {
		return subject, nil
	}
	return "", errors.New("bad token")
}

type MockIdentityAPI struct{ mock.Mock }

func (m *MockIdentityAPI) Register(ctx context.Context, in service.RegisterInput) (*models.Identity, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityAPI) GetProfile(ctx context.Context, id uint) (*models.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityAPI) ResolveActorID(ctx context.Context, subject string) (uint, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockIdentityAPI) UpdateProfile(ctx context.Context, actorID, targetID uint, in service.UpdateProfileInput) (*models.Identity, error) {
	args := m.Called(ctx, actorID, targetID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityAPI) SearchByUsername(ctx context.Context, prefix string, limit int) ([]*models.Identity, error) {
	args := m.Called(ctx, prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Identity), args.Error(1)
}

type MockGraphAPI struct{ mock.Mock }

func (m *MockGraphAPI) Follow(ctx context.Context, actorID, targetID uint) (bool, error) {
	args := m.Called(ctx, actorID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphAPI) Unfollow(ctx context.Context, actorID, targetID uint) (bool, error) {
	args := m.Called(ctx, actorID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphAPI) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	args := m.Called(ctx, actorID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphAPI) ListFollowers(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error) {
	args := m.Called(ctx, id, limit, offset)
	return args.Get(0).([]*models.Identity), args.Error(1)
}

func (m *MockGraphAPI) ListFollowing(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error) {
	args := m.Called(ctx, id, limit, offset)
	return args.Get(0).([]*models.Identity), args.Error(1)
}

type MockContentAPI struct{ mock.Mock }

func (m *MockContentAPI) CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockContentAPI) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	args := m.Called(ctx, id, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockContentAPI) ListPostsByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	args := m.Called(ctx, authorID, limit, offset, viewerID)
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockContentAPI) DeletePost(ctx context.Context, actorID, postID uint) error {
	return m.Called(ctx, actorID, postID).Error(0)
}

func (m *MockContentAPI) CreateStory(ctx context.Context, actorID uint, imageRef string) (*models.Story, error) {
	args := m.Called(ctx, actorID, imageRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockContentAPI) ListActiveStories(ctx context.Context, viewerID uint) ([]models.StoryItem, error) {
	args := m.Called(ctx, viewerID)
	return args.Get(0).([]models.StoryItem), args.Error(1)
}

type MockEngagementAPI struct{ mock.Mock }

func (m *MockEngagementAPI) Like(ctx context.Context, postID, actorID uint) (bool, error) {
	args := m.Called(ctx, postID, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEngagementAPI) Unlike(ctx context.Context, postID, actorID uint) (bool, error) {
	args := m.Called(ctx, postID, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEngagementAPI) ListLikers(ctx context.Context, postID uint, limit, offset int) ([]*models.Identity, error) {
	args := m.Called(ctx, postID, limit, offset)
	return args.Get(0).([]*models.Identity), args.Error(1)
}

func (m *MockEngagementAPI) AddComment(ctx context.Context, postID, actorID uint, text string) (*models.Comment, error) {
	args := m.Called(ctx, postID, actorID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockEngagementAPI) DeleteComment(ctx context.Context, postID, commentID, actorID uint) error {
	return m.Called(ctx, postID, commentID, actorID).Error(0)
}

func (m *MockEngagementAPI) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	args := m.Called(ctx, postID, limit, offset)
	return args.Get(0).([]*models.Comment), args.Error(1)
}

type MockNotificationAPI struct{ mock.Mock }

func (m *MockNotificationAPI) List(ctx context.Context, targetID uint) (*models.NotificationGroups, error) {
	args := m.Called(ctx, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationGroups), args.Error(1)
}

func (m *MockNotificationAPI) UnreadCount(ctx context.Context, actorID uint) (int64, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationAPI) MarkRead(ctx context.Context, notificationID, actorID uint) error {
	return m.Called(ctx, notificationID, actorID).Error(0)
}

func (m *MockNotificationAPI) MarkAllRead(ctx context.Context, actorID uint) (int64, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).(int64), args.Error(1)
}

type MockFeedAPI struct{ mock.Mock }

func (m *MockFeedAPI) GetFeed(ctx context.Context, q service.FeedQuery) (*service.Feed, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Feed), args.Error(1)
}

type MockSavedAPI struct{ mock.Mock }

func (m *MockSavedAPI) Save(ctx context.Context, ownerID uint, in service.SaveInput) (*models.SavedItem, bool, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.SavedItem), args.Bool(1), args.Error(2)
}

func (m *MockSavedAPI) Unsave(ctx context.Context, ownerID uint, source models.SourceKind, ref string) (bool, error) {
	args := m.Called(ctx, ownerID, source, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockSavedAPI) ListSaved(ctx context.Context, ownerID uint, limit, offset int) ([]models.SavedView, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]models.SavedView), args.Error(1)
}
