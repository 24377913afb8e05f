package repository

import (
	"context"

	"socialhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedRepository stores each identity's bookmark set.
type SavedRepository interface {
	Save(ctx context.Context, item *models.SavedItem) (bool, error)
	Delete(ctx context.Context, ownerID uint, itemKey string) (bool, error)
	Exists(ctx context.Context, ownerID uint, itemKey string) (bool, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.SavedItem, error)
}

type savedRepository struct {
	db *gorm.DB
}

// NewSavedRepository creates a new saved-items repository
func NewSavedRepository(db *gorm.DB) SavedRepository {
	return &savedRepository{db: db}
}

// Save inserts item unless the owner already saved the same key, keeping the
// first snapshot. It reports whether a row was added.
func (r *savedRepository) Save(ctx context.Context, item *models.SavedItem) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "item_key"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return false, mapError(res.Error, "SavedItem", item.ItemKey)
	}
	return res.RowsAffected > 0, nil
}

func (r *savedRepository) Delete(ctx context.Context, ownerID uint, itemKey string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND item_key = ?", ownerID, itemKey).
		Delete(&models.SavedItem{})
	if res.Error != nil {
		return false, mapError(res.Error, "SavedItem", itemKey)
	}
	return res.RowsAffected > 0, nil
}

func (r *savedRepository) Exists(ctx context.Context, ownerID uint, itemKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SavedItem{}).
		Where("owner_id = ? AND item_key = ?", ownerID, itemKey).
		Count(&count).Error
	if err != nil {
		return false, mapError(err, "SavedItem", itemKey)
	}
	return count > 0, nil
}

func (r *savedRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.SavedItem, error) {
	limit, offset = page(limit, offset)
	var items []*models.SavedItem
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, mapError(err, "SavedItem", ownerID)
	}
	return items, nil
}
