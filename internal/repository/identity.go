package repository

import (
	"context"
	"strings"

	"socialhub/internal/cache"
	"socialhub/internal/models"

	"gorm.io/gorm"
)

// IdentityRepository defines the interface for identity data operations
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id uint) (*models.Identity, error)
	GetByExternalID(ctx context.Context, subject string) (*models.Identity, error)
	GetSummaries(ctx context.Context, ids []uint) (map[uint]models.AuthorSummary, error)
	Update(ctx context.Context, identity *models.Identity) error
	Delete(ctx context.Context, id uint) error
	SearchByUsername(ctx context.Context, prefix string, limit int) ([]*models.Identity, error)
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if err := r.db.WithContext(ctx).Create(identity).Error; err != nil {
		return mapError(err, "Identity", identity.Username)
	}
	return nil
}

// withCounts derives follower, following and post counts at read time. The
// subquery aliases keep it safe to combine with joins on the same tables.
func withCounts(db *gorm.DB) *gorm.DB {
	return db.Select("identities.*, " +
		"(SELECT COUNT(*) FROM follower_edges fc WHERE fc.owner_id = identities.id) AS follower_count, " +
		"(SELECT COUNT(*) FROM following_edges gc WHERE gc.owner_id = identities.id) AS following_count, " +
		"(SELECT COUNT(*) FROM posts pc WHERE pc.author_id = identities.id AND pc.deleted_at IS NULL) AS post_count")
}

// GetByID caches the profile row. Counts are never cached; they are read
// fresh on every call so follows and posts show up immediately.
func (r *identityRepository) GetByID(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	err := cache.Aside(ctx, cache.IdentityKey(id), &identity, cache.IdentityTTL, func() error {
		return r.db.WithContext(ctx).First(&identity, id).Error
	})
	if err != nil {
		return nil, mapError(err, "Identity", id)
	}
	if err := r.loadCounts(ctx, &identity); err != nil {
		return nil, mapError(err, "Identity", id)
	}
	return &identity, nil
}

func (r *identityRepository) loadCounts(ctx context.Context, identity *models.Identity) error {
	var counts struct {
		FollowerCount  int64
		FollowingCount int64
		PostCount      int64
	}
	err := r.db.WithContext(ctx).Raw("SELECT "+
		"(SELECT COUNT(*) FROM follower_edges WHERE owner_id = ?) AS follower_count, "+
		"(SELECT COUNT(*) FROM following_edges WHERE owner_id = ?) AS following_count, "+
		"(SELECT COUNT(*) FROM posts WHERE author_id = ? AND deleted_at IS NULL) AS post_count",
		identity.ID, identity.ID, identity.ID).Scan(&counts).Error
	if err != nil {
		return err
	}
	identity.FollowerCount = counts.FollowerCount
	identity.FollowingCount = counts.FollowingCount
	identity.PostCount = counts.PostCount
	return nil
}

// GetByExternalID resolves an auth subject. It runs on every authenticated
// request, so the lookup is cached.
func (r *identityRepository) GetByExternalID(ctx context.Context, subject string) (*models.Identity, error) {
	var identity models.Identity
	err := cache.Aside(ctx, cache.SubjectKey(subject), &identity, cache.SubjectTTL, func() error {
		return r.db.WithContext(ctx).Where("external_id = ?", subject).First(&identity).Error
	})
	if err != nil {
		return nil, mapError(err, "Identity", subject)
	}
	return &identity, nil
}

// GetSummaries returns live display data for the identities that still exist.
// Missing or deleted IDs are absent from the map.
func (r *identityRepository) GetSummaries(ctx context.Context, ids []uint) (map[uint]models.AuthorSummary, error) {
	out := make(map[uint]models.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.AuthorSummary
	if err := r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Select("id, username, profile_photo_ref").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, mapError(err, "Identity", ids)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *identityRepository) Update(ctx context.Context, identity *models.Identity) error {
	err := r.db.WithContext(ctx).
		Model(identity).
		Select("username", "bio", "profile_photo_ref", "cover_photo_ref").
		Updates(identity).Error
	if err != nil {
		return mapError(err, "Identity", identity.ID)
	}
	cache.InvalidateIdentity(ctx, identity.ID)
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, id uint) error {
	var identity models.Identity
	if err := r.db.WithContext(ctx).First(&identity, id).Error; err != nil {
		return mapError(err, "Identity", id)
	}
	if err := r.db.WithContext(ctx).Delete(&identity).Error; err != nil {
		return mapError(err, "Identity", id)
	}
	cache.Invalidate(ctx, cache.IdentityKey(id), cache.SubjectKey(identity.ExternalID))
	return nil
}

func (r *identityRepository) SearchByUsername(ctx context.Context, prefix string, limit int) ([]*models.Identity, error) {
	limit, _ = page(limit, 0)
	pattern := strings.ToLower(escapeLike(prefix)) + "%"

	var identities []*models.Identity
	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&identities).Error
	if err != nil {
		return nil, mapError(err, "Identity", prefix)
	}
	return identities, nil
}
