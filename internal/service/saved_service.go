package service

import (
	"context"
	"strconv"
	"strings"

	"socialhub/internal/models"
	"socialhub/internal/repository"
	"socialhub/internal/retry"
	"socialhub/internal/validation"

	"github.com/samber/lo"
)

// SaveInput bookmarks either an internal post or an external image.
type SaveInput struct {
	Source      models.SourceKind
	PostID      uint
	ExternalRef string
	// Snapshot is required for external items and ignored for internal ones.
	Snapshot models.SavedSnapshot
}

// SavedService manages each identity's saved set.
type SavedService struct {
	settings
	saved      repository.SavedRepository
	posts      repository.PostRepository
	identities repository.IdentityRepository
}

// NewSavedService returns a new SavedService.
func NewSavedService(
	saved repository.SavedRepository,
	posts repository.PostRepository,
	identities repository.IdentityRepository,
	opts ...Option,
) *SavedService {
	return &SavedService{
		settings:   newSettings(opts),
		saved:      saved,
		posts:      posts,
		identities: identities,
	}
}

// Save adds an item to ownerID's saved set. Saving the same reference again
// keeps the first snapshot and reports created=false.
func (s *SavedService) Save(ctx context.Context, ownerID uint, in SaveInput) (*models.SavedItem, bool, error) {
	var item *models.SavedItem
	var err error

	switch in.Source {
	case models.SourceInternal:
		item, err = s.internalItem(ctx, ownerID, in.PostID)
	case models.SourceExternal:
		item, err = externalItem(ownerID, in)
	default:
		err = models.NewValidationError("source must be one of: internal external")
	}
	if err != nil {
		return nil, false, err
	}
	item.CreatedAt = s.now().UTC()

	created, err := retry.Value(ctx, s.policy, "saved.save", func(ctx context.Context) (bool, error) {
		return s.saved.Save(ctx, item)
	})
	if err != nil {
		return nil, false, err
	}
	return item, created, nil
}

func (s *SavedService) internalItem(ctx context.Context, ownerID, postID uint) (*models.SavedItem, error) {
	if postID == 0 {
		return nil, models.NewValidationError("post_id is required")
	}
	post, err := retry.Value(ctx, s.policy, "post.get", func(ctx context.Context) (*models.Post, error) {
		return s.posts.GetByID(ctx, postID, 0)
	})
	if err != nil {
		return nil, err
	}
	authors, err := retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
		return s.identities.GetSummaries(ctx, []uint{post.AuthorID})
	})
	if err != nil {
		return nil, err
	}
	author, ok := authors[post.AuthorID]
	if !ok {
		return nil, models.NewNotFoundError("Identity", post.AuthorID)
	}

	ref := strconv.FormatUint(uint64(post.ID), 10)
	return &models.SavedItem{
		OwnerID:    ownerID,
		ItemKey:    models.SavedItemKey(models.SourceInternal, ref),
		SourceKind: models.SourceInternal,
		PostID:     &post.ID,
		Snapshot: models.SavedSnapshot{
			ImageRef:   post.ImageRef(),
			AuthorName: author.Username,
			Caption:    post.Caption,
		},
	}, nil
}

func externalItem(ownerID uint, in SaveInput) (*models.SavedItem, error) {
	ref := strings.TrimSpace(in.ExternalRef)
	if ref == "" {
		return nil, models.NewValidationError("external_ref is required")
	}
	if err := validation.ValidateImageRef(in.Snapshot.ImageRef); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.MaxLength("Caption", in.Snapshot.Caption, maxCaptionLen); err != nil {
		return nil, err
	}
	return &models.SavedItem{
		OwnerID:     ownerID,
		ItemKey:     models.SavedItemKey(models.SourceExternal, ref),
		SourceKind:  models.SourceExternal,
		ExternalRef: ref,
		Snapshot:    in.Snapshot,
	}, nil
}

// Unsave removes a reference from the saved set. It is a no-op when absent.
func (s *SavedService) Unsave(ctx context.Context, ownerID uint, source models.SourceKind, ref string) (bool, error) {
	if !source.Valid() {
		return false, models.NewValidationError("source must be one of: internal external")
	}
	key := models.SavedItemKey(source, strings.TrimSpace(ref))
	return retry.Value(ctx, s.policy, "saved.delete", func(ctx context.Context) (bool, error) {
		return s.saved.Delete(ctx, ownerID, key)
	})
}

// IsSaved reports whether the reference is in ownerID's saved set.
func (s *SavedService) IsSaved(ctx context.Context, ownerID uint, source models.SourceKind, ref string) (bool, error) {
	if !source.Valid() {
		return false, models.NewValidationError("source must be one of: internal external")
	}
	key := models.SavedItemKey(source, strings.TrimSpace(ref))
	return retry.Value(ctx, s.policy, "saved.exists", func(ctx context.Context) (bool, error) {
		return s.saved.Exists(ctx, ownerID, key)
	})
}

// ListSaved returns ownerID's saved items, newest first. Internal items get
// the author's live username and photo and are dropped when the post or its
// author is gone. External items carry only their frozen snapshot.
func (s *SavedService) ListSaved(ctx context.Context, ownerID uint, limit, offset int) ([]models.SavedView, error) {
	items, err := retry.Value(ctx, s.policy, "saved.list", func(ctx context.Context) ([]*models.SavedItem, error) {
		return s.saved.ListByOwner(ctx, ownerID, limit, offset)
	})
	if err != nil {
		return nil, err
	}

	postIDs := lo.FilterMap(items, func(it *models.SavedItem, _ int) (uint, bool) {
		if it.SourceKind != models.SourceInternal || it.PostID == nil {
			return 0, false
		}
		return *it.PostID, true
	})

	posts := map[uint]*models.Post{}
	authors := map[uint]models.AuthorSummary{}
	if len(postIDs) > 0 {
		found, err := retry.Value(ctx, s.policy, "post.get_many", func(ctx context.Context) ([]*models.Post, error) {
			return s.posts.GetByIDs(ctx, lo.Uniq(postIDs))
		})
		if err != nil {
			return nil, err
		}
		posts = lo.KeyBy(found, func(p *models.Post) uint { return p.ID })

		authorIDs := lo.Uniq(lo.Map(found, func(p *models.Post, _ int) uint { return p.AuthorID }))
		authors, err = retry.Value(ctx, s.policy, "identity.summaries", func(ctx context.Context) (map[uint]models.AuthorSummary, error) {
			return s.identities.GetSummaries(ctx, authorIDs)
		})
		if err != nil {
			return nil, err
		}
	}

	views := make([]models.SavedView, 0, len(items))
	for _, it := range items {
		if it.SourceKind != models.SourceInternal {
			views = append(views, models.SavedView{SavedItem: *it})
			continue
		}
		if it.PostID == nil {
			continue
		}
		post, ok := posts[*it.PostID]
		if !ok {
			continue
		}
		author, ok := authors[post.AuthorID]
		if !ok {
			continue
		}
		views = append(views, models.SavedView{SavedItem: *it, Author: &author})
	}
	return views, nil
}
