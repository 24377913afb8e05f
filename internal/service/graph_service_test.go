package service

import (
	"context"
	"testing"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphService_Follow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("self follow is invalid", func(t *testing.T) {
		t.Parallel()
		svc := NewGraphService(noopEdgeRepo(), noopIdentityRepo(), nil, fastRetry)
		_, err := svc.Follow(ctx, 4, 4)
		assertValidationError(t, err)
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()
		identities := noopIdentityRepo()
		identities.getSummariesFn = func(_ context.Context, _ []uint) (map[uint]models.AuthorSummary, error) {
			return map[uint]models.AuthorSummary{}, nil
		}
		svc := NewGraphService(noopEdgeRepo(), identities, nil, fastRetry)
		_, err := svc.Follow(ctx, 1, 99)
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("only a transition notifies", func(t *testing.T) {
		t.Parallel()
		notifications := newRecordingNotificationRepo()
		notifier := NewNotificationService(notifications, noopIdentityRepo(), nil, nil, fastRetry)

		following := map[[2]uint]bool{}
		edges := noopEdgeRepo()
		edges.followFn = func(_ context.Context, a, b uint) (bool, error) {
			if following[[2]uint{a, b}] {
				return false, nil
			}
			following[[2]uint{a, b}] = true
			return true, nil
		}
		svc := NewGraphService(edges, noopIdentityRepo(), notifier, fastRetry)

		created, err := svc.Follow(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = svc.Follow(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, created)

		sent := notifications.Created()
		require.Len(t, sent, 1)
		assert.Equal(t, models.NotificationFollow, sent[0].Kind)
		assert.Equal(t, uint(1), sent[0].ActorID)
		assert.Equal(t, uint(2), sent[0].TargetID)
		assert.Nil(t, sent[0].SubjectPostID)
	})

	t.Run("transient store failure is retried", func(t *testing.T) {
		t.Parallel()
		calls := 0
		edges := noopEdgeRepo()
		edges.followFn = func(_ context.Context, _, _ uint) (bool, error) {
			calls++
			if calls < 3 {
				return false, models.NewTransientError(nil)
			}
			return true, nil
		}
		svc := NewGraphService(edges, noopIdentityRepo(), nil, fastRetry)

		created, err := svc.Follow(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 3, calls)
	})
}

func TestGraphService_UnfollowSelf(t *testing.T) {
	t.Parallel()
	svc := NewGraphService(noopEdgeRepo(), noopIdentityRepo(), nil, fastRetry)
	_, err := svc.Unfollow(context.Background(), 4, 4)
	assertValidationError(t, err)
}

func TestGraphService_IsFollowing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("symmetric pair answers directly", func(t *testing.T) {
		t.Parallel()
		edges := noopEdgeRepo()
		edges.stateFn = func(_ context.Context, _, _ uint) (models.EdgeState, error) {
			return models.EdgeState{Following: true, Follower: true}, nil
		}
		edges.repairPairFn = func(_ context.Context, _, _ uint) (models.EdgeState, error) {
			t.Fatal("repair must not run for a symmetric pair")
			return models.EdgeState{}, nil
		}
		svc := NewGraphService(edges, noopIdentityRepo(), nil, fastRetry)

		ok, err := svc.IsFollowing(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("torn pair is repaired from the following side", func(t *testing.T) {
		t.Parallel()
		repaired := false
		edges := noopEdgeRepo()
		edges.stateFn = func(_ context.Context, _, _ uint) (models.EdgeState, error) {
			return models.EdgeState{Following: false, Follower: true}, nil
		}
		edges.repairPairFn = func(_ context.Context, a, b uint) (models.EdgeState, error) {
			repaired = true
			assert.Equal(t, uint(1), a)
			assert.Equal(t, uint(2), b)
			return models.EdgeState{}, nil
		}
		svc := NewGraphService(edges, noopIdentityRepo(), nil, fastRetry)

		ok, err := svc.IsFollowing(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, repaired)
	})
}

func TestGraphService_Reconcile(t *testing.T) {
	t.Parallel()
	edges := noopEdgeRepo()
	edges.reconcileFn = func(_ context.Context) (models.ReconcileReport, error) {
		return models.ReconcileReport{MirrorsInserted: 2, OrphansRemoved: 1}, nil
	}
	svc := NewGraphService(edges, noopIdentityRepo(), nil, fastRetry)

	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Repaired())
}
