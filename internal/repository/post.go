package repository

import (
	"context"
	"time"

	"socialhub/internal/models"

	"gorm.io/gorm"
)

// WindowQuery selects posts created within [Start, End].
type WindowQuery struct {
	Start     time.Time
	End       time.Time
	AuthorIDs []uint // nil means every author
	Limit     int
	ViewerID  uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error)
	ListWindow(ctx context.Context, q WindowQuery) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return mapError(err, "Post", post.ID)
	}
	return nil
}

// applyPostDetails derives like and comment counts and the viewer's liked flag
// in the same query. Counts are never stored on the post row.
func applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.identity_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	if err := applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewerID).First(&post, id).Error; err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

// GetByIDs returns the live posts among ids. Deleted posts are absent.
func (r *postRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, mapError(err, "Post", ids)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	limit, offset = page(limit, offset)
	var posts []*models.Post
	err := applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewerID).
		Where("posts.author_id = ?", authorID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, mapError(err, "Post", authorID)
	}
	return posts, nil
}

func (r *postRepository) ListWindow(ctx context.Context, q WindowQuery) ([]*models.Post, error) {
	if q.AuthorIDs != nil && len(q.AuthorIDs) == 0 {
		return nil, nil
	}
	limit, _ := page(q.Limit, 0)

	db := applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), q.ViewerID).
		Where("posts.created_at >= ? AND posts.created_at <= ?", q.Start.UTC(), q.End.UTC())
	if q.AuthorIDs != nil {
		db = db.Where("posts.author_id IN ?", q.AuthorIDs)
	}

	var posts []*models.Post
	if err := db.Order("posts.created_at DESC, posts.id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, mapError(err, "Post", "window")
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return mapError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
