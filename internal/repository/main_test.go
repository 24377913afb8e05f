package repository

import (
	"testing"
	"time"

	"socialhub/internal/database"
	"socialhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB opens a private in-memory database with the full schema.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedIdentity(t *testing.T, db *gorm.DB, username string) *models.Identity {
	t.Helper()
	identity := &models.Identity{ExternalID: "sub-" + username, Username: username}
	require.NoError(t, db.Create(identity).Error)
	return identity
}

func seedPost(t *testing.T, db *gorm.DB, authorID uint, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		AuthorID:  authorID,
		Kind:      models.PostKindText,
		Body:      "hello",
		CreatedAt: createdAt.UTC(),
	}
	require.NoError(t, db.Create(post).Error)
	return post
}
