package models

import (
	"time"

	"gorm.io/gorm"
)

// PostKind distinguishes image posts from text posts.
type PostKind string

const (
	PostKindImage PostKind = "image"
	PostKindText  PostKind = "text"
)

// Valid reports whether k is a known kind.
func (k PostKind) Valid() bool {
	return k == PostKindImage || k == PostKindText
}

// Post is authored content. Body holds the text for text posts and the
// image reference for image posts.
type Post struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	AuthorID uint     `gorm:"not null;index:idx_posts_author_created,priority:1" json:"author_id"`
	Kind     PostKind `gorm:"type:varchar(10);not null" json:"kind"`
	Body     string   `gorm:"type:text;not null" json:"body"`
	Caption  string   `gorm:"type:text" json:"caption"`
	// LikeCount is not persisted; computed at query time
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
	// CommentCount is not persisted; computed at query time
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
	// Liked indicates whether the requesting identity liked this post (computed)
	Liked     bool           `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time      `gorm:"index;index:idx_posts_author_created,priority:2" json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ImageRef returns the image reference of an image post, or "" for text posts.
func (p *Post) ImageRef() string {
	if p.Kind == PostKindImage {
		return p.Body
	}
	return ""
}

// Like is membership of an identity in a post's like set.
type Like struct {
	PostID     uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	IdentityID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comment is an entry in a post's append-only comment log.
type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	// AuthorUsername is frozen at write time
	AuthorUsername string    `gorm:"size:30;not null" json:"author_username"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}

// FeedItem is a post joined with its author's current profile data.
type FeedItem struct {
	Post
	Author AuthorSummary `json:"author"`
}
