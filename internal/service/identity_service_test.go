package service

import (
	"context"
	"strings"
	"testing"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		svc := NewIdentityService(noopIdentityRepo(), fastRetry)

		tests := []struct {
			name string
			in   RegisterInput
		}{
			{"missing subject", RegisterInput{Username: "valid_name"}},
			{"short username", RegisterInput{ExternalID: "sub", Username: "ab"}},
			{"bad characters", RegisterInput{ExternalID: "sub", Username: "bad name!"}},
			{"bio too long", RegisterInput{ExternalID: "sub", Username: "valid_name", Bio: strings.Repeat("x", 501)}},
			{"bad photo ref", RegisterInput{ExternalID: "sub", Username: "valid_name", ProfilePhotoRef: "../x.jpg"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Register(ctx, tt.in)
				assertValidationError(t, err)
			})
		}
	})

	t.Run("trims username", func(t *testing.T) {
		t.Parallel()
		repo := noopIdentityRepo()
		var stored *models.Identity
		repo.createFn = func(_ context.Context, i *models.Identity) error {
			i.ID = 5
			stored = i
			return nil
		}
		svc := NewIdentityService(repo, fastRetry)

		got, err := svc.Register(ctx, RegisterInput{ExternalID: "sub-5", Username: "  jane.doe  "})
		require.NoError(t, err)
		assert.Equal(t, uint(5), got.ID)
		assert.Equal(t, "jane.doe", stored.Username)
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		t.Parallel()
		repo := noopIdentityRepo()
		repo.createFn = func(_ context.Context, _ *models.Identity) error {
			return models.NewConflictError("Identity already exists", nil)
		}
		svc := NewIdentityService(repo, fastRetry)

		_, err := svc.Register(ctx, RegisterInput{ExternalID: "sub", Username: "taken"})
		assertCode(t, err, models.CodeConflict)
	})
}

func TestIdentityService_UpdateProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("only self may edit", func(t *testing.T) {
		t.Parallel()
		svc := NewIdentityService(noopIdentityRepo(), fastRetry)
		bio := "hi"
		_, err := svc.UpdateProfile(ctx, 1, 2, UpdateProfileInput{Bio: &bio})
		assertPermissionDenied(t, err)
	})

	t.Run("applies patch", func(t *testing.T) {
		t.Parallel()
		repo := noopIdentityRepo()
		var updated *models.Identity
		repo.updateFn = func(_ context.Context, i *models.Identity) error {
			updated = i
			return nil
		}
		svc := NewIdentityService(repo, fastRetry)

		username, photo := "new_name", "https://cdn.example.com/me.jpg"
		got, err := svc.UpdateProfile(ctx, 3, 3, UpdateProfileInput{Username: &username, ProfilePhotoRef: &photo})
		require.NoError(t, err)
		assert.Equal(t, "new_name", got.Username)
		assert.Equal(t, photo, updated.ProfilePhotoRef)
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		t.Parallel()
		svc := NewIdentityService(noopIdentityRepo(), fastRetry)
		username := "x"
		_, err := svc.UpdateProfile(ctx, 3, 3, UpdateProfileInput{Username: &username})
		assertValidationError(t, err)
	})
}

func TestIdentityService_ResolveActorID(t *testing.T) {
	t.Parallel()
	repo := noopIdentityRepo()
	repo.getByExternalIDFn = func(_ context.Context, subject string) (*models.Identity, error) {
		if subject == "known" {
			return &models.Identity{ID: 9}, nil
		}
		return nil, models.NewNotFoundError("Identity", subject)
	}
	svc := NewIdentityService(repo, fastRetry)

	id, err := svc.ResolveActorID(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)

	_, err = svc.ResolveActorID(context.Background(), "stranger")
	assertCode(t, err, models.CodeNotFound)
}

func TestIdentityService_SearchRequiresQuery(t *testing.T) {
	t.Parallel()
	svc := NewIdentityService(noopIdentityRepo(), fastRetry)
	_, err := svc.SearchByUsername(context.Background(), "   ", 10)
	assertValidationError(t, err)
}
