package models

import (
	"fmt"
	"time"
)

// SourceKind says where a saved item's content lives.
type SourceKind string

const (
	SourceInternal SourceKind = "internal"
	SourceExternal SourceKind = "external"
)

// Valid reports whether s is a known source kind.
func (s SourceKind) Valid() bool {
	return s == SourceInternal || s == SourceExternal
}

// SavedSnapshot is display data frozen at save time.
type SavedSnapshot struct {
	ImageRef   string `gorm:"column:snapshot_image_ref" json:"image_ref"`
	AuthorName string `gorm:"column:snapshot_author_name" json:"author_name"`
	Caption    string `gorm:"column:snapshot_caption;type:text" json:"caption,omitempty"`
	SourceURL  string `gorm:"column:snapshot_source_url" json:"source_url,omitempty"`
}

// SavedItem is one bookmark in an identity's saved set.
type SavedItem struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	OwnerID     uint          `gorm:"not null;uniqueIndex:idx_saved_owner_item,priority:1;index:idx_saved_owner_created,priority:1" json:"owner_id"`
	ItemKey     string        `gorm:"size:160;not null;uniqueIndex:idx_saved_owner_item,priority:2" json:"-"`
	SourceKind  SourceKind    `gorm:"type:varchar(10);not null" json:"source_kind"`
	PostID      *uint         `gorm:"index" json:"post_id,omitempty"`
	ExternalRef string        `gorm:"size:128" json:"external_ref,omitempty"`
	Snapshot    SavedSnapshot `gorm:"embedded" json:"snapshot"`
	CreatedAt   time.Time     `gorm:"index:idx_saved_owner_created,priority:2" json:"created_at"`
}

// SavedItemKey builds the per-owner uniqueness key for a saved reference.
func SavedItemKey(source SourceKind, ref string) string {
	return fmt.Sprintf("%s:%s", source, ref)
}

// SavedView is a saved item resolved for display. Author is populated
// from live data for internal items only.
type SavedView struct {
	SavedItem
	Author *AuthorSummary `json:"author,omitempty"`
}
