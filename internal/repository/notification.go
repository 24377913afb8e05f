package repository

import (
	"context"
	"time"

	"socialhub/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores notification records owned by their target.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListSince(ctx context.Context, targetID uint, since time.Time) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, targetID uint) (int64, error)
	CountUnreadSince(ctx context.Context, targetID uint, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return mapError(err, "Notification", n.TargetID)
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, mapError(err, "Notification", id)
	}
	return &n, nil
}

// ListSince returns the target's notifications created at or after since, newest first.
func (r *notificationRepository) ListSince(ctx context.Context, targetID uint, since time.Time) ([]*models.Notification, error) {
	var out []*models.Notification
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND created_at >= ?", targetID, since.UTC()).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, mapError(err, "Notification", targetID)
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return mapError(res.Error, "Notification", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, targetID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_id = ? AND read = ?", targetID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, mapError(res.Error, "Notification", targetID)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) CountUnreadSince(ctx context.Context, targetID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_id = ? AND read = ? AND created_at >= ?", targetID, false, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, mapError(err, "Notification", targetID)
	}
	return count, nil
}

func (r *notificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, mapError(res.Error, "Notification", "expired")
	}
	return res.RowsAffected, nil
}
