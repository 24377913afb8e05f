package repository

import (
	"context"
	"time"

	"socialhub/internal/models"

	"gorm.io/gorm"
)

// StoryRepository stores short-lived stories. The SQL and Mongo stores both satisfy it.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	ListActive(ctx context.Context, authorIDs []uint, now time.Time) ([]*models.Story, error)
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

type storyRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates the SQL-backed story store.
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	if err := r.db.WithContext(ctx).Create(story).Error; err != nil {
		return mapError(err, "Story", story.ID)
	}
	return nil
}

// ListActive returns unexpired stories by the given authors, newest first.
func (r *storyRepository) ListActive(ctx context.Context, authorIDs []uint, now time.Time) ([]*models.Story, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	var stories []*models.Story
	err := r.db.WithContext(ctx).
		Where("author_id IN ? AND expires_at >= ?", authorIDs, now.UTC()).
		Order("created_at DESC").
		Find(&stories).Error
	if err != nil {
		return nil, mapError(err, "Story", authorIDs)
	}
	return stories, nil
}

// DeleteExpired removes stories whose expiry is before now and returns their IDs.
func (r *storyRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Story{}).Where("expires_at < ?", now.UTC()).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&models.Story{}).Error
	})
	if err != nil {
		return nil, mapError(err, "Story", "expired")
	}
	return ids, nil
}
