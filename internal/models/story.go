package models

import "time"

// StoryLifetime is how long a story stays visible after creation.
const StoryLifetime = 24 * time.Hour

// Story is a short-lived image post. It is invisible once ExpiresAt has
// passed; physical removal is left to the sweep job.
type Story struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id" bson:"author_id"`
	ImageRef  string    `gorm:"not null" json:"image_ref" bson:"image_ref"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at" bson:"expires_at"`
}

// ActiveAt reports whether the story is visible at t.
func (s *Story) ActiveAt(t time.Time) bool {
	return !t.After(s.ExpiresAt)
}

// StoryItem is a story joined with its author's display data.
type StoryItem struct {
	Story
	Author AuthorSummary `json:"author"`
}
