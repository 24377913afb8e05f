package repository

import (
	"context"
	"testing"
	"time"

	"socialhub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryRepository_ActiveAndSweep(t *testing.T) {
	db := setupSQLiteDB(t)
	ctx := context.Background()
	repo := NewStoryRepository(db)

	author := seedIdentity(t, db, "author")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	newStory := func(age time.Duration) *models.Story {
		created := now.Add(-age)
		s := &models.Story{
			ID:        uuid.NewString(),
			AuthorID:  author.ID,
			ImageRef:  "stories/x.jpg",
			CreatedAt: created,
			ExpiresAt: created.Add(models.StoryLifetime),
		}
		require.NoError(t, repo.Create(ctx, s))
		return s
	}

	fresh := newStory(time.Hour)
	older := newStory(20 * time.Hour)
	expired := newStory(25 * time.Hour)

	active, err := repo.ListActive(ctx, []uint{author.ID}, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, fresh.ID, active[0].ID)
	assert.Equal(t, older.ID, active[1].ID)

	none, err := repo.ListActive(ctx, nil, now)
	require.NoError(t, err)
	assert.Empty(t, none)

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{expired.ID}, removed)

	removed, err = repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
