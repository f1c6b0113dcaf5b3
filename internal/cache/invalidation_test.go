package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedStore(t *testing.T, store *RedisStore) {
	t.Helper()
	ctx := context.Background()
	require.True(t, store.Set(ctx, ProjectKey(1), "p1", time.Hour))
	require.True(t, store.Set(ctx, UserProjectsKey(9), "u9", time.Hour))
	require.True(t, store.Set(ctx, "cluster_objects:proj:1|tags:x", "o1", time.Hour))
	require.True(t, store.Set(ctx, "cluster_objects:proj:2", "o2", time.Hour))
}

func TestInvalidateProjectWithUser(t *testing.T) {
	store, _ := newTestStore(t)
	seedStore(t, store)
	inv := NewInvalidator(store, zap.NewNop(), nil)
	ctx := context.Background()

	inv.InvalidateProject(ctx, 1, 9)

	_, ok := store.Get(ctx, ProjectKey(1))
	assert.False(t, ok)
	_, ok = store.Get(ctx, UserProjectsKey(9))
	assert.False(t, ok)
	// Object listings are untouched by project invalidation.
	_, ok = store.Get(ctx, "cluster_objects:proj:1|tags:x")
	assert.True(t, ok)
}

func TestInvalidateProjectWithoutUserSkipsProjectList(t *testing.T) {
	store, _ := newTestStore(t)
	seedStore(t, store)
	inv := NewInvalidator(store, zap.NewNop(), nil)
	ctx := context.Background()

	// Carried-over behavior: an unknown (zero) user id purges only the
	// project key, never the user's project list.
	inv.InvalidateProject(ctx, 1, 0)

	_, ok := store.Get(ctx, ProjectKey(1))
	assert.False(t, ok)
	_, ok = store.Get(ctx, UserProjectsKey(9))
	assert.True(t, ok)
}

func TestInvalidateClusterObjectsPurgesWholeNamespace(t *testing.T) {
	store, _ := newTestStore(t)
	seedStore(t, store)
	inv := NewInvalidator(store, zap.NewNop(), nil)
	ctx := context.Background()

	inv.InvalidateClusterObjects(ctx)

	_, ok := store.Get(ctx, "cluster_objects:proj:1|tags:x")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "cluster_objects:proj:2")
	assert.False(t, ok)
	_, ok = store.Get(ctx, ProjectKey(1))
	assert.True(t, ok)
}

func TestInvalidationIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	seedStore(t, store)
	inv := NewInvalidator(store, zap.NewNop(), nil)
	ctx := context.Background()

	inv.InvalidateClusterObjects(ctx)
	inv.InvalidateClusterObjects(ctx)
	inv.InvalidateProject(ctx, 1, 9)
	inv.InvalidateProject(ctx, 1, 9)

	assert.Equal(t, 0, store.ScanDelete(ctx, ObjectListKeyPattern))
	_, ok := store.Get(ctx, ProjectKey(1))
	assert.False(t, ok)
}
