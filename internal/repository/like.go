package repository

import (
	"context"
	"time"

	"socialhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores the per-post like sets.
type LikeRepository interface {
	Like(ctx context.Context, postID, identityID uint) (bool, error)
	Unlike(ctx context.Context, postID, identityID uint) (bool, error)
	Count(ctx context.Context, postID uint) (int64, error)
	HasLiked(ctx context.Context, postID, identityID uint) (bool, error)
	ListLikers(ctx context.Context, postID uint, limit, offset int) ([]*models.Identity, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Like adds identityID to the post's like set and reports whether it was absent.
// Concurrent calls race on the primary key, never on a counter.
func (r *likeRepository) Like(ctx context.Context, postID, identityID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: postID, IdentityID: identityID, CreatedAt: time.Now().UTC()})
	if res.Error != nil {
		return false, mapError(res.Error, "Post", postID)
	}
	return res.RowsAffected > 0, nil
}

// Unlike removes identityID from the like set and reports whether it was present.
func (r *likeRepository) Unlike(ctx context.Context, postID, identityID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND identity_id = ?", postID, identityID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, mapError(res.Error, "Post", postID)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Count(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, mapError(err, "Post", postID)
	}
	return count, nil
}

func (r *likeRepository) HasLiked(ctx context.Context, postID, identityID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND identity_id = ?", postID, identityID).
		Count(&count).Error; err != nil {
		return false, mapError(err, "Post", postID)
	}
	return count > 0, nil
}

func (r *likeRepository) ListLikers(ctx context.Context, postID uint, limit, offset int) ([]*models.Identity, error) {
	limit, offset = page(limit, offset)
	var identities []*models.Identity
	err := withCounts(r.db.WithContext(ctx).Model(&models.Identity{})).
		Joins("JOIN likes ON likes.identity_id = identities.id").
		Where("likes.post_id = ?", postID).
		Order("likes.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&identities).Error
	if err != nil {
		return nil, mapError(err, "Post", postID)
	}
	return identities, nil
}
