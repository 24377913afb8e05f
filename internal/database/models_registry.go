package database

import "socialhub/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.Identity{},
		&models.FollowingEdge{},
		&models.FollowerEdge{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Story{},
		&models.Notification{},
		&models.SavedItem{},
	}
}
