package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

type storiesFunc func(ctx context.Context, now time.Time) ([]string, error)

func (f storiesFunc) SweepExpiredStories(ctx context.Context, now time.Time) ([]string, error) {
	return f(ctx, now)
}

type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

func (f purgeFunc) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return f(ctx, cutoff)
}

type reconcileFunc func(ctx context.Context) (models.ReconcileReport, error)

func (f reconcileFunc) Reconcile(ctx context.Context) (models.ReconcileReport, error) { return f(ctx) }

func TestRunOnce_RecordsOutcome(t *testing.T) {
	ok := funcJob{name: "test_ok", run: func(ctx context.Context) error {
		assert.NotEmpty(t, observability.ExtractCorrelationID(ctx))
		return nil
	}}
	require.NoError(t, RunOnce(context.Background(), ok))
	assert.Equal(t, 1.0, testutil.ToFloat64(observability.JobRuns.WithLabelValues("test_ok", "ok")))

	boom := errors.New("boom")
	failing := funcJob{name: "test_fail", run: func(context.Context) error { return boom }}
	assert.ErrorIs(t, RunOnce(context.Background(), failing), boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(observability.JobRuns.WithLabelValues("test_fail", "error")))
}

func TestRunOnce_RecoversPanic(t *testing.T) {
	job := funcJob{name: "test_panic", run: func(context.Context) error { panic("kaboom") }}
	err := RunOnce(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
}

func TestRunner_TicksUntilCancelled(t *testing.T) {
	var runs int32
	job := funcJob{name: "test_tick", run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner().Add(job, 5*time.Millisecond).Add(job, 0)
	r.Start(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()
}

func TestStorySweeper(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var cutoff time.Time
	sweeper := &StorySweeper{
		Stories: storiesFunc(func(_ context.Context, at time.Time) ([]string, error) {
			assert.Equal(t, now, at)
			return []string{"a", "b"}, nil
		}),
		Notifications: purgeFunc(func(_ context.Context, c time.Time) (int64, error) {
			cutoff = c
			return 3, nil
		}),
		Retention: 30 * 24 * time.Hour,
		Now:       func() time.Time { return now },
	}
	require.NoError(t, sweeper.Run(context.Background()))
	assert.Equal(t, now.Add(-30*24*time.Hour), cutoff)
}

func TestStorySweeper_NoRetentionSkipsPurge(t *testing.T) {
	sweeper := &StorySweeper{
		Stories: storiesFunc(func(context.Context, time.Time) ([]string, error) { return nil, nil }),
		Notifications: purgeFunc(func(context.Context, time.Time) (int64, error) {
			t.Fatal("purge should not run")
			return 0, nil
		}),
	}
	assert.NoError(t, sweeper.Run(context.Background()))
}

func TestStorySweeper_PropagatesError(t *testing.T) {
	transient := models.NewTransientError(errors.New("db gone"))
	sweeper := &StorySweeper{
		Stories: storiesFunc(func(context.Context, time.Time) ([]string, error) { return nil, transient }),
	}
	assert.True(t, models.IsTransient(sweeper.Run(context.Background())))
}

func TestEdgeReconciler(t *testing.T) {
	calls := 0
	r := &EdgeReconciler{Graph: reconcileFunc(func(context.Context) (models.ReconcileReport, error) {
		calls++
		return models.ReconcileReport{MirrorsInserted: 1}, nil
	})}
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "edge_reconcile", r.Name())
}
