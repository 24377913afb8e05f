package service

import (
	"context"
	"strings"

	"socialhub/internal/models"
	"socialhub/internal/repository"
	"socialhub/internal/retry"
	"socialhub/internal/validation"
)

const maxBioLen = 500

// IdentityService manages registered accounts.
type IdentityService struct {
	settings
	identities repository.IdentityRepository
}

// RegisterInput creates an identity for a verified auth subject.
type RegisterInput struct {
	ExternalID      string
	Username        string
	Bio             string
	ProfilePhotoRef string
	CoverPhotoRef   string
}

// UpdateProfileInput is a partial profile update; nil fields are left alone.
type UpdateProfileInput struct {
	Username        *string
	Bio             *string
	ProfilePhotoRef *string
	CoverPhotoRef   *string
}

// NewIdentityService returns a new IdentityService.
func NewIdentityService(identities repository.IdentityRepository, opts ...Option) *IdentityService {
	return &IdentityService{settings: newSettings(opts), identities: identities}
}

// Register creates an identity. Duplicate usernames or subjects fail with Conflict.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.Identity, error) {
	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, models.NewValidationError("External identity is required")
	}
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validateProfileFields(in.Bio, in.ProfilePhotoRef, in.CoverPhotoRef); err != nil {
		return nil, err
	}

	identity := &models.Identity{
		ExternalID:      in.ExternalID,
		Username:        username,
		Bio:             strings.TrimSpace(in.Bio),
		ProfilePhotoRef: in.ProfilePhotoRef,
		CoverPhotoRef:   in.CoverPhotoRef,
	}
	err := retry.Do(ctx, s.policy, "identity.create", func(ctx context.Context) error {
		return s.identities.Create(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// GetProfile returns the identity with derived follower, following and post counts.
func (s *IdentityService) GetProfile(ctx context.Context, id uint) (*models.Identity, error) {
	return retry.Value(ctx, s.policy, "identity.get", func(ctx context.Context) (*models.Identity, error) {
		return s.identities.GetByID(ctx, id)
	})
}

// ResolveActorID maps a verified auth subject to the local identity ID.
func (s *IdentityService) ResolveActorID(ctx context.Context, subject string) (uint, error) {
	identity, err := retry.Value(ctx, s.policy, "identity.resolve", func(ctx context.Context) (*models.Identity, error) {
		return s.identities.GetByExternalID(ctx, subject)
	})
	if err != nil {
		return 0, err
	}
	return identity.ID, nil
}

// UpdateProfile applies in to targetID. Only the identity itself may edit.
func (s *IdentityService) UpdateProfile(ctx context.Context, actorID, targetID uint, in UpdateProfileInput) (*models.Identity, error) {
	if actorID != targetID {
		return nil, models.NewPermissionDeniedError("You can only edit your own profile")
	}

	identity, err := s.GetProfile(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		identity.Username = username
	}
	if in.Bio != nil {
		identity.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.ProfilePhotoRef != nil {
		identity.ProfilePhotoRef = *in.ProfilePhotoRef
	}
	if in.CoverPhotoRef != nil {
		identity.CoverPhotoRef = *in.CoverPhotoRef
	}
	if err := validateProfileFields(identity.Bio, identity.ProfilePhotoRef, identity.CoverPhotoRef); err != nil {
		return nil, err
	}

	err = retry.Do(ctx, s.policy, "identity.update", func(ctx context.Context) error {
		return s.identities.Update(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// SearchByUsername returns identities whose username starts with prefix.
func (s *IdentityService) SearchByUsername(ctx context.Context, prefix string, limit int) ([]*models.Identity, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return retry.Value(ctx, s.policy, "identity.search", func(ctx context.Context) ([]*models.Identity, error) {
		return s.identities.SearchByUsername(ctx, prefix, limit)
	})
}

// Delete soft-deletes an identity. Admin tooling uses it; its posts stay and
// are skipped by the feed.
func (s *IdentityService) Delete(ctx context.Context, id uint) error {
	return retry.Do(ctx, s.policy, "identity.delete", func(ctx context.Context) error {
		return s.identities.Delete(ctx, id)
	})
}

func validateProfileFields(bio, profileRef, coverRef string) error {
	if err := validation.MaxLength("Bio", bio, maxBioLen); err != nil {
		return err
	}
	for _, ref := range []string{profileRef, coverRef} {
		if ref == "" {
			continue
		}
		if err := validation.ValidateImageRef(ref); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	return nil
}
