package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		CallTimeout: 50 * time.Millisecond,
		MaxAttempts: 3,
		Initial:     time.Millisecond,
		Max:         2 * time.Millisecond,
	}
}

func TestValue_RetriesTransientUntilSuccess(t *testing.T) {
	t.Parallel()
	calls := 0
	v, err := Value(context.Background(), fastPolicy(), "test.transient", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, models.NewTransientError(errors.New("connection reset"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestValue_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastPolicy(), "test.exhaust", func(context.Context) error {
		calls++
		return models.NewTransientError(errors.New("serialization failure"))
	})
	assert.True(t, models.IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestValue_DoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()
	tests := []error{
		models.NewValidationError("text must not be empty"),
		models.NewNotFoundError("Post", 1),
		models.NewConflictError("duplicate", nil),
		models.NewPermissionDeniedError("not yours"),
	}
	for _, want := range tests {
		calls := 0
		err := Do(context.Background(), fastPolicy(), "test.permanent", func(context.Context) error {
			calls++
			return want
		})
		assert.Equal(t, models.ErrorCode(want), models.ErrorCode(err))
		assert.Equal(t, 1, calls)
	}
}

func TestValue_AttemptTimeoutIsTransient(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastPolicy(), "test.timeout", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, models.IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestValue_StopsWhenParentCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{CallTimeout: time.Second, MaxAttempts: 10, Initial: 20 * time.Millisecond, Max: 20 * time.Millisecond},
		"test.cancel", func(context.Context) error {
			calls++
			cancel()
			return models.NewTransientError(errors.New("retry me"))
		})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
