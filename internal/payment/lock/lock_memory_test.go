package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"himstay/pkg/platform/sentinel"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire conflicts while held", func(t *testing.T) {
		locker := NewMemoryLocker()
		release, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		defer release()

		_, err = locker.Acquire(ctx, "app-1", time.Minute)
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("release frees the key", func(t *testing.T) {
		locker := NewMemoryLocker()
		release, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		release()

		release2, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		release2()
	})

	t.Run("independent keys do not interfere", func(t *testing.T) {
		locker := NewMemoryLocker()
		r1, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		defer r1()
		r2, err := locker.Acquire(ctx, "app-2", time.Minute)
		require.NoError(t, err)
		defer r2()
	})

	t.Run("expired lock can be reacquired", func(t *testing.T) {
		locker := NewMemoryLocker()
		_, err := locker.Acquire(ctx, "app-1", -time.Second) // already expired
		require.NoError(t, err)

		release, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		release()
	})
}
