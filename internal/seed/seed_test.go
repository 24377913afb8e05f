package seed

import (
	"context"
	"strings"
	"testing"

	"socialhub/internal/database"
	"socialhub/internal/models"
	"socialhub/internal/repository"
	"socialhub/internal/service"
	"socialhub/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServices(t *testing.T) (*gorm.DB, Services) {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	identities := repository.NewIdentityRepository(db)
	edges := repository.NewEdgeRepository(db)
	posts := repository.NewPostRepository(db)
	notify := service.NewNotificationService(repository.NewNotificationRepository(db), identities, nil, nil)

	return db, Services{
		Identity:   service.NewIdentityService(identities),
		Graph:      service.NewGraphService(edges, identities, notify),
		Content:    service.NewContentService(posts, repository.NewStoryRepository(db), edges, identities),
		Engagement: service.NewEngagementService(posts, repository.NewLikeRepository(db), repository.NewCommentRepository(db), identities, notify),
		Saved:      service.NewSavedService(repository.NewSavedRepository(db), posts, identities),
	}
}

func TestFactory_UsernamesAreValid(t *testing.T) {
	f := NewFactory(7)
	for i := 0; i < 50; i++ {
		name := f.Username()
		assert.NoError(t, validation.ValidateUsername(name), name)
	}
}

func TestFactory_PostsAreValidInputs(t *testing.T) {
	f := NewFactory(11)
	for i := 0; i < 20; i++ {
		in := f.Post(1)
		assert.True(t, in.Kind.Valid())
		assert.NotEmpty(t, strings.TrimSpace(in.Body))
		if in.Kind == models.PostKindImage {
			assert.NoError(t, validation.ValidateImageRef(in.Body))
		}
	}
}

func TestFactory_PickExcludesSkip(t *testing.T) {
	f := NewFactory(3)
	picked := f.Pick(5, 10, 2)
	assert.Len(t, picked, 4)
	assert.NotContains(t, picked, 2)
}

func TestSeeder_SeedMesh(t *testing.T) {
	db, svc := setupServices(t)
	opts := Options{Identities: 6, PostsPerIdentity: 2, FollowsPerIdentity: 3, StoriesPerIdentity: 1, LikeChance: 0.5, CommentChance: 0.2}

	report, err := NewSeeder(svc, 42).SeedMesh(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Identities)
	assert.Equal(t, 12, report.Posts)
	assert.Equal(t, 6, report.Stories)
	assert.Equal(t, 18, report.Follows)

	var following, followers int64
	require.NoError(t, db.Model(&models.FollowingEdge{}).Count(&following).Error)
	require.NoError(t, db.Model(&models.FollowerEdge{}).Count(&followers).Error)
	assert.Equal(t, int64(report.Follows), following)
	assert.Equal(t, following, followers)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	assert.Equal(t, int64(report.Likes), likes)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario(strings.NewReader("identities:\n  - username: a\n    email: nope\n"))
	assert.Error(t, err)
}

func TestSeeder_ApplyScenario(t *testing.T) {
	_, svc := setupServices(t)
	sc, err := LoadScenarioFile("testdata/small.yaml")
	require.NoError(t, err)

	ctx := context.Background()
	report, err := NewSeeder(svc, 1).ApplyScenario(ctx, sc)
	require.NoError(t, err)

	assert.Equal(t, Report{Identities: 3, Follows: 3, Posts: 2, Stories: 1, Likes: 2, Comments: 2, Saved: 2}, report)

	alice, err := svc.Identity.ResolveActorID(ctx, "seed|alice")
	require.NoError(t, err)
	profile, err := svc.Identity.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.FollowerCount)
	assert.Equal(t, int64(1), profile.FollowingCount)

	again, err := NewSeeder(svc, 1).ApplyScenario(ctx, sc)
	require.NoError(t, err)
	assert.Zero(t, again.Identities)
	assert.Zero(t, again.Follows)
	assert.Equal(t, 2, again.Posts)
	// the internal bookmark points at the re-created post; the external one already exists
	assert.Equal(t, 1, again.Saved)
}

func TestSeeder_ApplyScenarioUnknownIdentity(t *testing.T) {
	_, svc := setupServices(t)
	sc := &Scenario{Follows: [][2]string{{"ghost", "nobody"}}}
	_, err := NewSeeder(svc, 1).ApplyScenario(context.Background(), sc)
	assert.ErrorContains(t, err, "unknown identity")
}
