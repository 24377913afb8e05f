package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/repository"
	"socialhub/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = WithRetryPolicy(retry.Policy{
	CallTimeout: time.Second,
	MaxAttempts: 3,
	Initial:     time.Millisecond,
	Max:         2 * time.Millisecond,
})

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

// identityRepoStub is a stub for repository.IdentityRepository.
type identityRepoStub struct {
	createFn          func(context.Context, *models.Identity) error
	getByIDFn         func(context.Context, uint) (*models.Identity, error)
	getByExternalIDFn func(context.Context, string) (*models.Identity, error)
	getSummariesFn    func(context.Context, []uint) (map[uint]models.AuthorSummary, error)
	updateFn          func(context.Context, *models.Identity) error
	deleteFn          func(context.Context, uint) error
	searchFn          func(context.Context, string, int) ([]*models.Identity, error)
}

func (s *identityRepoStub) Create(ctx context.Context, i *models.Identity) error {
	return s.createFn(ctx, i)
}
func (s *identityRepoStub) GetByID(ctx context.Context, id uint) (*models.Identity, error) {
	return s.getByIDFn(ctx, id)
}
func (s *identityRepoStub) GetByExternalID(ctx context.Context, subject string) (*models.Identity, error) {
	return s.getByExternalIDFn(ctx, subject)
}
func (s *identityRepoStub) GetSummaries(ctx context.Context, ids []uint) (map[uint]models.AuthorSummary, error) {
	return s.getSummariesFn(ctx, ids)
}
func (s *identityRepoStub) Update(ctx context.Context, i *models.Identity) error {
	return s.updateFn(ctx, i)
}
func (s *identityRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *identityRepoStub) SearchByUsername(ctx context.Context, prefix string, limit int) ([]*models.Identity, error) {
	return s.searchFn(ctx, prefix, limit)
}

// noopIdentityRepo knows every ID and names it "user<ID>".
func noopIdentityRepo() *identityRepoStub {
	return &identityRepoStub{
		createFn: func(_ context.Context, i *models.Identity) error { i.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Identity, error) {
			return &models.Identity{ID: id, Username: userName(id)}, nil
		},
		getByExternalIDFn: func(_ context.Context, _ string) (*models.Identity, error) {
			return &models.Identity{ID: 1}, nil
		},
		getSummariesFn: func(_ context.Context, ids []uint) (map[uint]models.AuthorSummary, error) {
			out := make(map[uint]models.AuthorSummary, len(ids))
			for _, id := range ids {
				out[id] = models.AuthorSummary{ID: id, Username: userName(id)}
			}
			return out, nil
		},
		updateFn: func(_ context.Context, _ *models.Identity) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		searchFn: func(_ context.Context, _ string, _ int) ([]*models.Identity, error) { return nil, nil },
	}
}

func userName(id uint) string {
	return fmt.Sprintf("user%d", id)
}

// edgeRepoStub is a stub for repository.EdgeRepository.
type edgeRepoStub struct {
	followFn        func(context.Context, uint, uint) (bool, error)
	unfollowFn      func(context.Context, uint, uint) (bool, error)
	stateFn         func(context.Context, uint, uint) (models.EdgeState, error)
	repairPairFn    func(context.Context, uint, uint) (models.EdgeState, error)
	reconcileFn     func(context.Context) (models.ReconcileReport, error)
	listFollowersFn func(context.Context, uint, int, int) ([]*models.Identity, error)
	listFollowingFn func(context.Context, uint, int, int) ([]*models.Identity, error)
	followingIDsFn  func(context.Context, uint) ([]uint, error)
}

func (s *edgeRepoStub) Follow(ctx context.Context, a, b uint) (bool, error) {
	return s.followFn(ctx, a, b)
}
func (s *edgeRepoStub) Unfollow(ctx context.Context, a, b uint) (bool, error) {
	return s.unfollowFn(ctx, a, b)
}
func (s *edgeRepoStub) State(ctx context.Context, a, b uint) (models.EdgeState, error) {
	return s.stateFn(ctx, a, b)
}
func (s *edgeRepoStub) RepairPair(ctx context.Context, a, b uint) (models.EdgeState, error) {
	return s.repairPairFn(ctx, a, b)
}
func (s *edgeRepoStub) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	return s.reconcileFn(ctx)
}
func (s *edgeRepoStub) ListFollowers(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error) {
	return s.listFollowersFn(ctx, id, limit, offset)
}
func (s *edgeRepoStub) ListFollowing(ctx context.Context, id uint, limit, offset int) ([]*models.Identity, error) {
	return s.listFollowingFn(ctx, id, limit, offset)
}
func (s *edgeRepoStub) FollowingIDs(ctx context.Context, id uint) ([]uint, error) {
	return s.followingIDsFn(ctx, id)
}

func noopEdgeRepo() *edgeRepoStub {
	return &edgeRepoStub{
		followFn:   func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unfollowFn: func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		stateFn: func(_ context.Context, _, _ uint) (models.EdgeState, error) {
			return models.EdgeState{}, nil
		},
		repairPairFn: func(_ context.Context, _, _ uint) (models.EdgeState, error) {
			return models.EdgeState{}, nil
		},
		reconcileFn: func(_ context.Context) (models.ReconcileReport, error) {
			return models.ReconcileReport{}, nil
		},
		listFollowersFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Identity, error) { return nil, nil },
		listFollowingFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Identity, error) { return nil, nil },
		followingIDsFn:  func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint, uint) (*models.Post, error)
	getByIDsFn     func(context.Context, []uint) ([]*models.Post, error)
	listByAuthorFn func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	listWindowFn   func(context.Context, repository.WindowQuery) ([]*models.Post, error)
	deleteFn       func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error {
	return s.createFn(ctx, p)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset, viewerID)
}
func (s *postRepoStub) ListWindow(ctx context.Context, q repository.WindowQuery) ([]*models.Post, error) {
	return s.listWindowFn(ctx, q)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

// noopPostRepo returns post 1 authored by identity 10 for every lookup.
func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 10, Kind: models.PostKindText, Body: "hello"}, nil
		},
		getByIDsFn:     func(_ context.Context, _ []uint) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn: func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		listWindowFn:   func(_ context.Context, _ repository.WindowQuery) ([]*models.Post, error) { return nil, nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	likeFn       func(context.Context, uint, uint) (bool, error)
	unlikeFn     func(context.Context, uint, uint) (bool, error)
	countFn      func(context.Context, uint) (int64, error)
	hasLikedFn   func(context.Context, uint, uint) (bool, error)
	listLikersFn func(context.Context, uint, int, int) ([]*models.Identity, error)
}

func (s *likeRepoStub) Like(ctx context.Context, postID, id uint) (bool, error) {
	return s.likeFn(ctx, postID, id)
}
func (s *likeRepoStub) Unlike(ctx context.Context, postID, id uint) (bool, error) {
	return s.unlikeFn(ctx, postID, id)
}
func (s *likeRepoStub) Count(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}
func (s *likeRepoStub) HasLiked(ctx context.Context, postID, id uint) (bool, error) {
	return s.hasLikedFn(ctx, postID, id)
}
func (s *likeRepoStub) ListLikers(ctx context.Context, postID uint, limit, offset int) ([]*models.Identity, error) {
	return s.listLikersFn(ctx, postID, limit, offset)
}

// memLikes is an in-memory like set with the repository's transition semantics.
func memLikes() *likeRepoStub {
	var mu sync.Mutex
	set := map[[2]uint]bool{}
	return &likeRepoStub{
		likeFn: func(_ context.Context, postID, id uint) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			key := [2]uint{postID, id}
			if set[key] {
				return false, nil
			}
			set[key] = true
			return true, nil
		},
		unlikeFn: func(_ context.Context, postID, id uint) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			key := [2]uint{postID, id}
			if !set[key] {
				return false, nil
			}
			delete(set, key)
			return true, nil
		},
		countFn: func(_ context.Context, postID uint) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			var n int64
			for k := range set {
				if k[0] == postID {
					n++
				}
			}
			return n, nil
		},
		hasLikedFn: func(_ context.Context, postID, id uint) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return set[[2]uint{postID, id}], nil
		},
		listLikersFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Identity, error) { return nil, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint, int, int) ([]*models.Comment, error)
	countFn      func(context.Context, uint) (int64, error)
	deleteFn     func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) Count(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, c *models.Comment) error { c.ID = 1; return nil },
		getByIDFn:    func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, error) { return nil, nil },
		countFn:      func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// storyRepoStub is a stub for repository.StoryRepository.
type storyRepoStub struct {
	createFn        func(context.Context, *models.Story) error
	listActiveFn    func(context.Context, []uint, time.Time) ([]*models.Story, error)
	deleteExpiredFn func(context.Context, time.Time) ([]string, error)
}

func (s *storyRepoStub) Create(ctx context.Context, st *models.Story) error {
	return s.createFn(ctx, st)
}
func (s *storyRepoStub) ListActive(ctx context.Context, ids []uint, now time.Time) ([]*models.Story, error) {
	return s.listActiveFn(ctx, ids, now)
}
func (s *storyRepoStub) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	return s.deleteExpiredFn(ctx, now)
}

func noopStoryRepo() *storyRepoStub {
	return &storyRepoStub{
		createFn:        func(_ context.Context, _ *models.Story) error { return nil },
		listActiveFn:    func(_ context.Context, _ []uint, _ time.Time) ([]*models.Story, error) { return nil, nil },
		deleteExpiredFn: func(_ context.Context, _ time.Time) ([]string, error) { return nil, nil },
	}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn           func(context.Context, *models.Notification) error
	getByIDFn          func(context.Context, uint) (*models.Notification, error)
	listSinceFn        func(context.Context, uint, time.Time) ([]*models.Notification, error)
	markReadFn         func(context.Context, uint) error
	markAllReadFn      func(context.Context, uint) (int64, error)
	countUnreadSinceFn func(context.Context, uint, time.Time) (int64, error)
	deleteOlderThanFn  func(context.Context, time.Time) (int64, error)
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notificationRepoStub) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	return s.getByIDFn(ctx, id)
}
func (s *notificationRepoStub) ListSince(ctx context.Context, target uint, since time.Time) ([]*models.Notification, error) {
	return s.listSinceFn(ctx, target, since)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, id uint) error {
	return s.markReadFn(ctx, id)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, target uint) (int64, error) {
	return s.markAllReadFn(ctx, target)
}
func (s *notificationRepoStub) CountUnreadSince(ctx context.Context, target uint, since time.Time) (int64, error) {
	return s.countUnreadSinceFn(ctx, target, since)
}
func (s *notificationRepoStub) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.deleteOlderThanFn(ctx, cutoff)
}

// recordingNotificationRepo keeps every created notification.
type recordingNotificationRepo struct {
	*notificationRepoStub
	mu      sync.Mutex
	created []models.Notification
}

func newRecordingNotificationRepo() *recordingNotificationRepo {
	r := &recordingNotificationRepo{}
	r.notificationRepoStub = &notificationRepoStub{
		createFn: func(_ context.Context, n *models.Notification) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			n.ID = uint(len(r.created) + 1)
			r.created = append(r.created, *n)
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Notification, error) {
			return nil, models.NewNotFoundError("Notification", id)
		},
		listSinceFn:        func(_ context.Context, _ uint, _ time.Time) ([]*models.Notification, error) { return nil, nil },
		markReadFn:         func(_ context.Context, _ uint) error { return nil },
		markAllReadFn:      func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		countUnreadSinceFn: func(_ context.Context, _ uint, _ time.Time) (int64, error) { return 0, nil },
		deleteOlderThanFn:  func(_ context.Context, _ time.Time) (int64, error) { return 0, nil },
	}
	return r
}

func (r *recordingNotificationRepo) Created() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.created...)
}

// savedRepoStub is a stub for repository.SavedRepository.
type savedRepoStub struct {
	saveFn        func(context.Context, *models.SavedItem) (bool, error)
	deleteFn      func(context.Context, uint, string) (bool, error)
	existsFn      func(context.Context, uint, string) (bool, error)
	listByOwnerFn func(context.Context, uint, int, int) ([]*models.SavedItem, error)
}

func (s *savedRepoStub) Save(ctx context.Context, it *models.SavedItem) (bool, error) {
	return s.saveFn(ctx, it)
}
func (s *savedRepoStub) Delete(ctx context.Context, owner uint, key string) (bool, error) {
	return s.deleteFn(ctx, owner, key)
}
func (s *savedRepoStub) Exists(ctx context.Context, owner uint, key string) (bool, error) {
	return s.existsFn(ctx, owner, key)
}
func (s *savedRepoStub) ListByOwner(ctx context.Context, owner uint, limit, offset int) ([]*models.SavedItem, error) {
	return s.listByOwnerFn(ctx, owner, limit, offset)
}

func noopSavedRepo() *savedRepoStub {
	return &savedRepoStub{
		saveFn:        func(_ context.Context, _ *models.SavedItem) (bool, error) { return true, nil },
		deleteFn:      func(_ context.Context, _ uint, _ string) (bool, error) { return true, nil },
		existsFn:      func(_ context.Context, _ uint, _ string) (bool, error) { return false, nil },
		listByOwnerFn: func(_ context.Context, _ uint, _, _ int) ([]*models.SavedItem, error) { return nil, nil },
	}
}

// flagStub enables the listed flags for everyone.
type flagStub map[string]bool

func (f flagStub) Enabled(name string, _ uint) bool { return f[name] }

// publisherStub records published notifications.
type publisherStub struct {
	mu   sync.Mutex
	err  error
	sent []models.NotificationView
}

func (p *publisherStub) Channel() string { return "stub" }

func (p *publisherStub) PublishNotification(_ context.Context, n *models.NotificationView) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, *n)
	return nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func assertPermissionDenied(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodePermissionDenied)
}
