package models

import "time"

// NotificationKind is the engagement that produced a notification.
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
)

// Notification is owned by its target; only Read ever changes after creation.
type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	TargetID      uint             `gorm:"not null;index:idx_notifications_target_created,priority:1" json:"target_id"`
	ActorID       uint             `gorm:"not null" json:"actor_id"`
	SubjectPostID *uint            `json:"subject_post_id,omitempty"`
	Kind          NotificationKind `gorm:"type:varchar(16);not null" json:"kind"`
	Read          bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt     time.Time        `gorm:"index:idx_notifications_target_created,priority:2" json:"created_at"`
}

// NotificationView is a notification with the actor's live display data.
type NotificationView struct {
	Notification
	Actor AuthorSummary `json:"actor"`
}

// NotificationGroups is the recency-bucketed notification listing.
type NotificationGroups struct {
	New      []NotificationView `json:"new"`
	LastWeek []NotificationView `json:"last_week"`
}
