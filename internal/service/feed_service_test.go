package service

import (
	"context"
	"testing"
	"time"

	"socialhub/internal/featureflags"
	"socialhub/internal/models"
	"socialhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedService_DefaultWindow(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)

	posts := noopPostRepo()
	var got repository.WindowQuery
	posts.listWindowFn = func(_ context.Context, q repository.WindowQuery) ([]*models.Post, error) {
		got = q
		return nil, nil
	}
	svc := NewFeedService(posts, noopEdgeRepo(), noopIdentityRepo(), nil, nil, fastRetry, fixedClock(now))

	feed, err := svc.GetFeed(context.Background(), FeedQuery{ViewerID: 1})
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), got.Start)
	assert.Equal(t, now, got.End)
	assert.Nil(t, got.AuthorIDs)
	assert.Empty(t, feed.Items)
	assert.NotNil(t, feed.Items)
}

func TestFeedService_ExplicitWindow(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)

	posts := noopPostRepo()
	var got repository.WindowQuery
	posts.listWindowFn = func(_ context.Context, q repository.WindowQuery) ([]*models.Post, error) {
		got = q
		return nil, nil
	}
	svc := NewFeedService(posts, noopEdgeRepo(), noopIdentityRepo(), nil, nil, fastRetry)

	_, err := svc.GetFeed(context.Background(), FeedQuery{ViewerID: 1, WindowStart: start, WindowEnd: end, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, start, got.Start)
	assert.Equal(t, end, got.End)
	assert.Equal(t, 5, got.Limit)

	_, err = svc.GetFeed(context.Background(), FeedQuery{ViewerID: 1, WindowStart: end, WindowEnd: start})
	assertValidationError(t, err)
}

func TestFeedService_SkipsPostsWithMissingAuthor(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	posts := noopPostRepo()
	posts.listWindowFn = func(_ context.Context, _ repository.WindowQuery) ([]*models.Post, error) {
		return []*models.Post{
			{ID: 3, AuthorID: 1, CreatedAt: now.Add(-time.Minute), LikeCount: 2},
			{ID: 2, AuthorID: 404, CreatedAt: now.Add(-2 * time.Minute)},
			{ID: 1, AuthorID: 2, CreatedAt: now.Add(-3 * time.Minute), CommentCount: 1},
		}, nil
	}
	identities := noopIdentityRepo()
	identities.getSummariesFn = func(_ context.Context, ids []uint) (map[uint]models.AuthorSummary, error) {
		assert.ElementsMatch(t, []uint{1, 404, 2}, ids)
		return map[uint]models.AuthorSummary{
			1: {ID: 1, Username: "alice_now"},
			2: {ID: 2, Username: "bob", ProfilePhotoRef: "p/bob.jpg"},
		}, nil
	}
	svc := NewFeedService(posts, noopEdgeRepo(), identities, nil, nil, fastRetry)

	feed, err := svc.GetFeed(context.Background(), FeedQuery{ViewerID: 1})
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, uint(3), feed.Items[0].ID)
	assert.Equal(t, "alice_now", feed.Items[0].Author.Username)
	assert.Equal(t, int64(2), feed.Items[0].LikeCount)
	assert.Equal(t, uint(1), feed.Items[1].ID)
	assert.Equal(t, "p/bob.jpg", feed.Items[1].Author.ProfilePhotoRef)
}

func TestFeedService_FollowingOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	edges := noopEdgeRepo()
	edges.followingIDsFn = func(_ context.Context, _ uint) ([]uint, error) { return []uint{4, 5}, nil }

	posts := noopPostRepo()
	var got repository.WindowQuery
	posts.listWindowFn = func(_ context.Context, q repository.WindowQuery) ([]*models.Post, error) {
		got = q
		return nil, nil
	}

	t.Run("flag default", func(t *testing.T) {
		svc := NewFeedService(posts, edges, noopIdentityRepo(), nil, flagStub{featureflags.FeedFollowingOnly: true}, fastRetry)
		_, err := svc.GetFeed(ctx, FeedQuery{ViewerID: 1})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{4, 5, 1}, got.AuthorIDs)
	})

	t.Run("query overrides flag", func(t *testing.T) {
		off := false
		svc := NewFeedService(posts, edges, noopIdentityRepo(), nil, flagStub{featureflags.FeedFollowingOnly: true}, fastRetry)
		_, err := svc.GetFeed(ctx, FeedQuery{ViewerID: 1, FollowingOnly: &off})
		require.NoError(t, err)
		assert.Nil(t, got.AuthorIDs)
	})
}

func TestFeedService_StoriesInFeed(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	stories := noopStoryRepo()
	stories.listActiveFn = func(_ context.Context, _ []uint, _ time.Time) ([]*models.Story, error) {
		return []*models.Story{{ID: "s1", AuthorID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}}, nil
	}
	content := NewContentService(noopPostRepo(), stories, noopEdgeRepo(), noopIdentityRepo(), fastRetry, fixedClock(now))

	svc := NewFeedService(noopPostRepo(), noopEdgeRepo(), noopIdentityRepo(), content, flagStub{featureflags.StoriesInFeed: true}, fastRetry, fixedClock(now))
	feed, err := svc.GetFeed(context.Background(), FeedQuery{ViewerID: 1})
	require.NoError(t, err)
	require.Len(t, feed.Stories, 1)

	svc = NewFeedService(noopPostRepo(), noopEdgeRepo(), noopIdentityRepo(), content, flagStub{}, fastRetry, fixedClock(now))
	feed, err = svc.GetFeed(context.Background(), FeedQuery{ViewerID: 1})
	require.NoError(t, err)
	assert.Empty(t, feed.Stories)
}
