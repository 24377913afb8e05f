package service

import (
	"context"
	"testing"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavedService_SaveInternal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 10, Kind: models.PostKindImage, Body: "img/1.jpg", Caption: "cap"}, nil
	}
	saved := noopSavedRepo()
	var stored *models.SavedItem
	saved.saveFn = func(_ context.Context, it *models.SavedItem) (bool, error) {
		stored = it
		return true, nil
	}
	svc := NewSavedService(saved, posts, noopIdentityRepo(), fastRetry)

	item, created, err := svc.Save(ctx, 1, SaveInput{Source: models.SourceInternal, PostID: 5})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "internal:5", stored.ItemKey)
	assert.Equal(t, "img/1.jpg", item.Snapshot.ImageRef)
	assert.Equal(t, "user10", item.Snapshot.AuthorName)

	_, _, err = svc.Save(ctx, 1, SaveInput{Source: models.SourceInternal})
	assertValidationError(t, err)
}

func TestSavedService_SaveExternal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewSavedService(noopSavedRepo(), noopPostRepo(), noopIdentityRepo(), fastRetry)

	_, _, err := svc.Save(ctx, 1, SaveInput{Source: models.SourceExternal, Snapshot: models.SavedSnapshot{ImageRef: "https://x/y.jpg"}})
	assertValidationError(t, err)

	_, _, err = svc.Save(ctx, 1, SaveInput{Source: models.SourceExternal, ExternalRef: "u:1"})
	assertValidationError(t, err)

	_, _, err = svc.Save(ctx, 1, SaveInput{Source: "bookmark"})
	assertValidationError(t, err)

	item, _, err := svc.Save(ctx, 1, SaveInput{
		Source:      models.SourceExternal,
		ExternalRef: " u:1 ",
		Snapshot:    models.SavedSnapshot{ImageRef: "https://x/y.jpg", AuthorName: "Ann"},
	})
	require.NoError(t, err)
	assert.Equal(t, "external:u:1", item.ItemKey)
}

func TestSavedService_ListSaved(t *testing.T) {
	t.Parallel()
	pid := func(id uint) *uint { return &id }

	saved := noopSavedRepo()
	saved.listByOwnerFn = func(_ context.Context, _ uint, _, _ int) ([]*models.SavedItem, error) {
		return []*models.SavedItem{
			{ID: 1, SourceKind: models.SourceInternal, PostID: pid(100), Snapshot: models.SavedSnapshot{AuthorName: "old_name"}},
			{ID: 2, SourceKind: models.SourceExternal, ExternalRef: "u:1", Snapshot: models.SavedSnapshot{AuthorName: "Ann", ImageRef: "https://x/y.jpg"}},
			{ID: 3, SourceKind: models.SourceInternal, PostID: pid(200)},
			{ID: 4, SourceKind: models.SourceInternal, PostID: pid(300)},
		}, nil
	}
	posts := noopPostRepo()
	posts.getByIDsFn = func(_ context.Context, ids []uint) ([]*models.Post, error) {
		assert.ElementsMatch(t, []uint{100, 200, 300}, ids)
		// 200 is gone; 300's author is gone
		return []*models.Post{{ID: 100, AuthorID: 1}, {ID: 300, AuthorID: 404}}, nil
	}
	identities := noopIdentityRepo()
	identities.getSummariesFn = func(_ context.Context, _ []uint) (map[uint]models.AuthorSummary, error) {
		return map[uint]models.AuthorSummary{1: {ID: 1, Username: "new_name"}}, nil
	}
	svc := NewSavedService(saved, posts, identities, fastRetry)

	views, err := svc.ListSaved(context.Background(), 1, 20, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, uint(1), views[0].ID)
	require.NotNil(t, views[0].Author)
	assert.Equal(t, "new_name", views[0].Author.Username)

	assert.Equal(t, uint(2), views[1].ID)
	assert.Nil(t, views[1].Author)
	assert.Equal(t, "Ann", views[1].Snapshot.AuthorName)
}

func TestSavedService_Unsave(t *testing.T) {
	t.Parallel()
	saved := noopSavedRepo()
	var key string
	saved.deleteFn = func(_ context.Context, _ uint, k string) (bool, error) {
		key = k
		return false, nil
	}
	svc := NewSavedService(saved, noopPostRepo(), noopIdentityRepo(), fastRetry)

	removed, err := svc.Unsave(context.Background(), 1, models.SourceInternal, "9")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, "internal:9", key)

	_, err = svc.Unsave(context.Background(), 1, "other", "9")
	assertValidationError(t, err)
}
