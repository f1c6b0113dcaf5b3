package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "clusterize-backend/internal/errors"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, zap.NewNop(), nil)
	require.True(t, store.Available())
	return store, mr
}

func TestStoreSetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "project:1", `{"id":1}`, time.Hour))

	value, ok := store.Get(ctx, "project:1")
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, value)

	_, ok = store.Get(ctx, "project:2")
	assert.False(t, ok)
}

func TestStoreSetWithZeroTTLDoesNotExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "pinned", "v", 0))
	require.True(t, store.Set(ctx, "expiring", "v", time.Minute))

	// The zero-TTL path must produce an entry with no expiry at all.
	assert.Equal(t, time.Duration(0), mr.TTL("pinned"))
	assert.Equal(t, time.Minute, mr.TTL("expiring"))

	mr.FastForward(2 * time.Minute)
	_, ok := store.Get(ctx, "pinned")
	assert.True(t, ok)
	_, ok = store.Get(ctx, "expiring")
	assert.False(t, ok)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "k", "v", time.Hour))

	assert.True(t, store.Delete(ctx, "k"))
	// Deleting an absent key never errors and leaves the same end state.
	assert.True(t, store.Delete(ctx, "k"))
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStoreScanDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "cluster_objects:proj:1", "a", time.Hour))
	require.True(t, store.Set(ctx, "cluster_objects:proj:2|tags:x", "b", time.Hour))
	require.True(t, store.Set(ctx, "project:1", "c", time.Hour))

	deleted := store.ScanDelete(ctx, ObjectListKeyPattern)
	assert.Equal(t, 2, deleted)

	_, ok := store.Get(ctx, "project:1")
	assert.True(t, ok)
	_, ok = store.Get(ctx, "cluster_objects:proj:1")
	assert.False(t, ok)

	// Nothing left to match: the second pass deletes zero keys.
	assert.Equal(t, 0, store.ScanDelete(ctx, ObjectListKeyPattern))
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	assert.False(t, store.Set(ctx, "", "v", time.Hour))
	_, ok := store.Get(ctx, "")
	assert.False(t, ok)
	assert.False(t, store.Delete(ctx))
	assert.Equal(t, 0, store.ScanDelete(ctx, ""))
}

func TestStoreDegradesWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond})
	store := NewRedisStore(client, zap.NewNop(), nil)
	ctx := context.Background()

	// Startup probe failed: the process runs uncached, nothing panics.
	assert.False(t, store.Available())
	assert.False(t, store.Set(ctx, "k", "v", time.Hour))
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, store.Delete(ctx, "k"))
	assert.Equal(t, 0, store.ScanDelete(ctx, "*"))

	// The structured read path names the failure instead of hiding it.
	_, err := store.GetResult(ctx, "k")
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestGetResultDistinguishesMissFromOutage(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	value, err := store.GetResult(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, value)

	mr.SetError("connection lost")
	_, err = store.GetResult(ctx, "absent")
	assert.True(t, apperrors.IsUnavailable(err))
}
