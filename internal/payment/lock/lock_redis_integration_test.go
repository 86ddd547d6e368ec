//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"himstay/pkg/platform/sentinel"
	"himstay/pkg/testutil/containers"
)

func TestRedisLocker(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	t.Run("second acquire conflicts while held", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		locker := NewRedisLocker(rc.Client)

		release, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		defer release()

		_, err = locker.Acquire(ctx, "app-1", time.Minute)
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("release frees the key", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		locker := NewRedisLocker(rc.Client)

		release, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		release()

		release2, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		release2()
	})

	t.Run("ttl expiry frees the key", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		locker := NewRedisLocker(rc.Client)

		_, err := locker.Acquire(ctx, "app-1", 100*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(200 * time.Millisecond)

		release, err := locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		release()
	})

	t.Run("stale release does not clobber a new holder", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		locker := NewRedisLocker(rc.Client)

		staleRelease, err := locker.Acquire(ctx, "app-1", 100*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(200 * time.Millisecond)

		// A new holder takes over after expiry; the stale release must not
		// delete its lock.
		_, err = locker.Acquire(ctx, "app-1", time.Minute)
		require.NoError(t, err)
		staleRelease()

		_, err = locker.Acquire(ctx, "app-1", time.Minute)
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})
}
