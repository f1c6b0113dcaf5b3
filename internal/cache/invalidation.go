package cache

import (
	"context"

	"go.uber.org/zap"

	"clusterize-backend/internal/observability"
)

// Invalidator maps entity mutations to the cache keys that must be
// purged. Services call it synchronously right after a mutation
// commits; invalidation is a best-effort side effect, so failures are
// logged and swallowed and the mutation is still considered successful.
// Deletes are idempotent: purging an already-absent key is a no-op.
type Invalidator struct {
	store   Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewInvalidator creates an Invalidator over the given store.
func NewInvalidator(store Store, logger *zap.Logger, metrics *observability.Metrics) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{store: store, logger: logger, metrics: metrics}
}

// InvalidateProject purges the project's own cache entry and, when the
// owning user id is known, the user's project-list entry.
//
// A non-positive userID skips the project-list purge. That asymmetry is
// carried over from the original system, where a falsy user id silently
// skipped the second key; it looks like a latent bug there, but callers
// rely on passing 0 for "owner unknown", so the behavior is preserved.
func (i *Invalidator) InvalidateProject(ctx context.Context, projectID, userID int64) {
	keys := []string{ProjectKey(projectID)}
	if userID > 0 {
		keys = append(keys, UserProjectsKey(userID))
	}

	if i.store.Delete(ctx, keys...) {
		i.metrics.CacheInvalidation("project")
		i.logger.Debug("invalidated project caches", zap.Strings("keys", keys))
	} else {
		i.logger.Warn("project cache invalidation skipped or failed", zap.Strings("keys", keys))
	}
}

// InvalidateClusterObjects purges every cached object listing. Cluster
// and tag mutations can affect an unbounded number of previously cached
// filter combinations, so the policy trades precision for correctness
// and scan-deletes the whole namespace instead of attempting targeted
// per-key deletes.
func (i *Invalidator) InvalidateClusterObjects(ctx context.Context) {
	deleted := i.store.ScanDelete(ctx, ObjectListKeyPattern)
	if deleted > 0 {
		i.metrics.CacheInvalidation("cluster_objects")
		i.logger.Debug("invalidated object listing caches", zap.Int("deleted", deleted))
	}
}
