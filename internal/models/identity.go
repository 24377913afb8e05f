// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Identity is a registered account. Follower and following sets live in
// the follower_edges and following_edges tables.
type Identity struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ExternalID      string         `gorm:"size:128;uniqueIndex;not null" json:"-"`
	Username        string         `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Bio             string         `gorm:"size:500" json:"bio"`
	ProfilePhotoRef string         `json:"profile_photo_ref"`
	CoverPhotoRef   string         `json:"cover_photo_ref"`
	FollowerCount   int64          `gorm:"->;-:migration" json:"follower_count"`
	FollowingCount  int64          `gorm:"->;-:migration" json:"following_count"`
	PostCount       int64          `gorm:"->;-:migration" json:"post_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (Identity) TableName() string {
	return "identities"
}

// AuthorSummary is the live display data joined onto posts, comments and notifications.
type AuthorSummary struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	ProfilePhotoRef string `json:"profile_photo_ref"`
}

// Summary returns the display subset of the identity.
func (i *Identity) Summary() AuthorSummary {
	return AuthorSummary{
		ID:              i.ID,
		Username:        i.Username,
		ProfilePhotoRef: i.ProfilePhotoRef,
	}
}
