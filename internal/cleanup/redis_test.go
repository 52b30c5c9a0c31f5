package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminating redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	store := NewRedisStoreFromClient(redis.NewClient(opts), "test:")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	require.NoError(t, store.Put(ctx, Task{ID: "b", Path: "/tmp/b.pdf", DueAt: base.Add(2 * time.Second)}))
	require.NoError(t, store.Put(ctx, Task{ID: "a", Path: "/tmp/a.pdf", Root: "/tmp", DueAt: base.Add(time.Second)}))
	require.NoError(t, store.Put(ctx, Task{ID: "c", Path: "/tmp/c.pdf", DueAt: base.Add(time.Hour)}))

	due, err := store.Due(ctx, base.Add(5*time.Second), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].ID)
	assert.Equal(t, "/tmp", due[0].Root)
	assert.True(t, due[0].DueAt.Equal(base.Add(time.Second)))
	assert.Equal(t, "b", due[1].ID)

	limited, err := store.Due(ctx, base.Add(5*time.Second), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Re-queue moves the task.
	require.NoError(t, store.Put(ctx, Task{ID: "a", Path: "/tmp/a.pdf", DueAt: base.Add(time.Hour), Attempts: 1}))
	require.NoError(t, store.Delete(ctx, "b"))
	require.NoError(t, store.Delete(ctx, "unknown"))

	due, err = store.Due(ctx, base.Add(5*time.Second), 0)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = store.Due(ctx, base.Add(2*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, 1, due[0].Attempts)
}

func TestRedisStore_WithScheduler(t *testing.T) {
	store := newRedisStore(t)
	root := t.TempDir()
	path := makeDownload(t, root)

	s := New(store, WithRoot(root))
	require.NoError(t, s.Schedule(context.Background(), path, time.Hour))
	require.NoError(t, s.Flush(context.Background()))
	assert.NoFileExists(t, path)

	due, err := store.Due(context.Background(), time.Now().Add(2*time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, due)
}
