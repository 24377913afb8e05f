package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentService_CreatePost_Validation(t *testing.T) {
	t.Parallel()
	svc := NewContentService(noopPostRepo(), noopStoryRepo(), noopEdgeRepo(), noopIdentityRepo(), fastRetry)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"unknown kind", CreatePostInput{AuthorID: 1, Kind: "video", Body: "x"}},
		{"blank text", CreatePostInput{AuthorID: 1, Kind: models.PostKindText, Body: "  "}},
		{"text too long", CreatePostInput{AuthorID: 1, Kind: models.PostKindText, Body: strings.Repeat("x", 10001)}},
		{"image without ref", CreatePostInput{AuthorID: 1, Kind: models.PostKindImage}},
		{"image with bad ref", CreatePostInput{AuthorID: 1, Kind: models.PostKindImage, Body: "javascript:alert(1)"}},
		{"caption too long", CreatePostInput{AuthorID: 1, Kind: models.PostKindText, Body: "hi", Caption: strings.Repeat("c", 2201)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreatePost(ctx, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestContentService_CreatePost(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	posts := noopPostRepo()
	var stored *models.Post
	posts.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 11
		stored = p
		return nil
	}
	svc := NewContentService(posts, noopStoryRepo(), noopEdgeRepo(), noopIdentityRepo(), fastRetry, fixedClock(now))

	got, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 3,
		Kind:     models.PostKindImage,
		Body:     "https://cdn.example.com/p.jpg",
		Caption:  "sunset",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(11), got.ID)
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, "https://cdn.example.com/p.jpg", got.ImageRef())
}

func TestContentService_DeletePost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	posts := noopPostRepo()
	deleted := false
	posts.deleteFn = func(_ context.Context, _ uint) error {
		deleted = true
		return nil
	}
	svc := NewContentService(posts, noopStoryRepo(), noopEdgeRepo(), noopIdentityRepo(), fastRetry)

	assertPermissionDenied(t, svc.DeletePost(ctx, 3, 1))
	assert.False(t, deleted)

	require.NoError(t, svc.DeletePost(ctx, 10, 1))
	assert.True(t, deleted)
}

func TestContentService_Stories(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create sets expiry", func(t *testing.T) {
		t.Parallel()
		svc := NewContentService(noopPostRepo(), noopStoryRepo(), noopEdgeRepo(), noopIdentityRepo(), fastRetry, fixedClock(now))
		story, err := svc.CreateStory(ctx, 1, "stories/a.jpg")
		require.NoError(t, err)
		assert.Len(t, story.ID, 36)
		assert.Equal(t, now.Add(24*time.Hour), story.ExpiresAt)

		_, err = svc.CreateStory(ctx, 1, "")
		assertValidationError(t, err)
	})

	t.Run("story bar covers followed authors and self", func(t *testing.T) {
		t.Parallel()
		edges := noopEdgeRepo()
		edges.followingIDsFn = func(_ context.Context, _ uint) ([]uint, error) { return []uint{2, 3}, nil }

		stories := noopStoryRepo()
		var asked []uint
		stories.listActiveFn = func(_ context.Context, ids []uint, at time.Time) ([]*models.Story, error) {
			asked = ids
			return []*models.Story{
				{ID: "s1", AuthorID: 2, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(23 * time.Hour)},
				{ID: "s2", AuthorID: 3, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(22 * time.Hour)},
			}, nil
		}
		identities := noopIdentityRepo()
		identities.getSummariesFn = func(_ context.Context, _ []uint) (map[uint]models.AuthorSummary, error) {
			return map[uint]models.AuthorSummary{2: {ID: 2, Username: "bob"}}, nil
		}
		svc := NewContentService(noopPostRepo(), stories, edges, identities, fastRetry, fixedClock(now))

		items, err := svc.ListActiveStories(ctx, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{1, 2, 3}, asked)
		require.Len(t, items, 1)
		assert.Equal(t, "bob", items[0].Author.Username)
	})

	t.Run("sweep reports removed ids", func(t *testing.T) {
		t.Parallel()
		stories := noopStoryRepo()
		stories.deleteExpiredFn = func(_ context.Context, at time.Time) ([]string, error) {
			assert.Equal(t, now, at)
			return []string{"a", "b"}, nil
		}
		svc := NewContentService(noopPostRepo(), stories, noopEdgeRepo(), noopIdentityRepo(), fastRetry)

		ids, err := svc.SweepExpiredStories(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
}
