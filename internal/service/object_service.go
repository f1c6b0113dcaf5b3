package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"clusterize-backend/internal/cache"
	"clusterize-backend/internal/config"
	"clusterize-backend/internal/domain"
	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/repository"
	"clusterize-backend/internal/storage"
)

// ObjectListing is the result of a filtered object listing. Cached
// reports whether the listing was served from the cache.
type ObjectListing struct {
	Objects []domain.ObjectWithURL `json:"objects"`
	Count   int                    `json:"count"`
	Cached  bool                   `json:"cached"`
}

// cachedListing is the payload stored in the cache. ExpiresAt is the
// application-level expiry, checked on every read independently of the
// store's own TTL: once the signed URLs inside get close to expiring,
// the entry is discarded even if the store still holds it.
type cachedListing struct {
	Objects   []domain.ObjectWithURL `json:"objects"`
	Count     int                    `json:"count"`
	ExpiresAt int64                  `json:"expires_at"`
}

// ObjectService lists and mutates objects. Listing runs the pipeline
// check cache → resolve filters → query → generate URLs → populate
// cache; mutations end by purging the cached listings.
type ObjectService struct {
	projects    repository.ProjectRepository
	clusters    repository.ClusterRepository
	objects     repository.ObjectRepository
	store       cache.Store
	invalidator *cache.Invalidator
	urls        *storage.URLBatchGenerator
	cacheCfg    config.Cache
	storageCfg  config.Storage
	logger      *zap.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewObjectService creates an ObjectService.
func NewObjectService(
	projects repository.ProjectRepository,
	clusters repository.ClusterRepository,
	objects repository.ObjectRepository,
	store cache.Store,
	invalidator *cache.Invalidator,
	urls *storage.URLBatchGenerator,
	cacheCfg config.Cache,
	storageCfg config.Storage,
	logger *zap.Logger,
) *ObjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObjectService{
		projects:    projects,
		clusters:    clusters,
		objects:     objects,
		store:       store,
		invalidator: invalidator,
		urls:        urls,
		cacheCfg:    cacheCfg,
		storageCfg:  storageCfg,
		logger:      logger,
		now:         time.Now,
	}
}

// ListObjects returns the project's objects matching the filter, each
// annotated with a signed download URL.
func (s *ObjectService) ListObjects(ctx context.Context, projectID int64, filter domain.FilterSet) (*ObjectListing, error) {
	key := cache.ObjectListKey(projectID, filter)

	if listing, ok := s.readCachedListing(ctx, key); ok {
		return listing, nil
	}

	clusterIDs, err := s.resolveClusterFilters(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.objects.Search(ctx, domain.ObjectQuery{
		ClusterIDs:    clusterIDs,
		Name:          filter.Name,
		Tags:          filter.Tags,
		RelocatedOnly: filter.RelocatedOnly,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound("NO_OBJECTS", "no objects found")
	}

	annotated := s.urls.Generate(ctx, storage.BucketName(projectID), rows)

	s.writeCachedListing(ctx, key, annotated)

	return &ObjectListing{Objects: annotated, Count: len(annotated), Cached: false}, nil
}

// readCachedListing returns a cached listing when one exists and its
// embedded expiry is still in the future. A hit whose embedded expiry
// has passed is deleted and reads as a miss, so a stale entry is never
// served even while the store still holds it.
func (s *ObjectService) readCachedListing(ctx context.Context, key string) (*ObjectListing, bool) {
	payload, ok := s.store.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var entry cachedListing
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
		s.store.Delete(ctx, key)
		return nil, false
	}
	if s.now().Unix() >= entry.ExpiresAt {
		s.logger.Debug("cached listing past embedded expiry, discarding", zap.String("key", key))
		s.store.Delete(ctx, key)
		return nil, false
	}

	return &ObjectListing{Objects: entry.Objects, Count: entry.Count, Cached: true}, true
}

// writeCachedListing stores the listing with an embedded expiry set a
// safety margin before the signed URLs inside would actually expire.
// The write is best-effort.
func (s *ObjectService) writeCachedListing(ctx context.Context, key string, objects []domain.ObjectWithURL) {
	expiresAt := s.now().Add(s.storageCfg.SignedURLLifetime - s.storageCfg.SignedURLSafetyMargin)
	payload, err := json.Marshal(cachedListing{
		Objects:   objects,
		Count:     len(objects),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		s.logger.Warn("failed to encode listing for cache", zap.String("key", key), zap.Error(err))
		return
	}
	s.store.Set(ctx, key, string(payload), s.cacheCfg.ClusterObjectsTTL)
}

// resolveClusterFilters turns the filter's cluster labels and display
// names into cluster ids. With no cluster criteria the whole project is
// in scope. Label resolution is strict: a request naming clusters that
// do not exist fails, listing the missing labels, instead of silently
// querying the subset that resolved.
func (s *ObjectService) resolveClusterFilters(ctx context.Context, projectID int64, filter domain.FilterSet) ([]int64, error) {
	if len(filter.Clusters) == 0 && len(filter.LabelNames) == 0 {
		clusters, _, err := s.clusters.FindByProjectID(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if len(clusters) == 0 {
			return nil, apperrors.NotFound("NO_OBJECTS", "no objects found")
		}
		ids := make([]int64, len(clusters))
		for i, c := range clusters {
			ids[i] = c.ID
		}
		return ids, nil
	}

	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if len(filter.Clusters) > 0 {
		clusters, err := s.clusters.FindByLabelsAndProject(ctx, filter.Clusters, projectID)
		if err != nil {
			return nil, err
		}
		resolved := make(map[string]struct{}, len(clusters))
		for _, c := range clusters {
			resolved[c.Label] = struct{}{}
			add(c.ID)
		}
		var missing []string
		for _, label := range filter.Clusters {
			if _, ok := resolved[label]; !ok {
				missing = append(missing, label)
			}
		}
		if len(missing) > 0 {
			return nil, apperrors.NotFound("CLUSTERS_NOT_FOUND",
				"clusters not found: "+strings.Join(missing, ", "))
		}
	}

	if len(filter.LabelNames) > 0 {
		clusters, err := s.clusters.FindByLabelNamesAndProject(ctx, filter.LabelNames, projectID)
		if err != nil {
			return nil, err
		}
		for _, c := range clusters {
			add(c.ID)
		}
	}

	if len(ids) == 0 {
		return nil, apperrors.NotFound("NO_OBJECTS", "no objects found")
	}
	return ids, nil
}

// UpdateObject replaces an object's tags and/or moves it to another
// cluster, identified by label. A nil tags slice means "leave tags
// alone"; an empty one clears them.
func (s *ObjectService) UpdateObject(ctx context.Context, projectID, objectID int64, tags []string, newClusterLabel string) (*domain.Object, error) {
	if tags == nil && newClusterLabel == "" {
		return nil, apperrors.Validation("NOTHING_TO_UPDATE", "nothing to update")
	}

	object, err := s.objects.FindByIDInProject(ctx, objectID, projectID)
	if err != nil {
		return nil, err
	}
	if object == nil {
		return nil, apperrors.NotFound("OBJECT_NOT_FOUND", "object not found")
	}

	if tags != nil {
		object, err = s.objects.UpdateTags(ctx, objectID, tags)
		if err != nil {
			return nil, err
		}
	}
	if newClusterLabel != "" {
		cluster, err := s.clusters.FindByLabelAndProject(ctx, newClusterLabel, projectID)
		if err != nil {
			return nil, err
		}
		if cluster == nil {
			return nil, apperrors.NotFound("CLUSTER_NOT_FOUND", "cluster not found")
		}
		object, err = s.objects.UpdateCluster(ctx, objectID, cluster.ID)
		if err != nil {
			return nil, err
		}
	}

	s.invalidator.InvalidateClusterObjects(ctx)
	return object, nil
}

// BatchUpdateObjects applies one mutation to many objects: either merge
// extra tags into each object, or move them all to another cluster.
// Exactly one of addTags and newClusterLabel must be set. Every object
// is validated to exist in the project before anything is written.
func (s *ObjectService) BatchUpdateObjects(ctx context.Context, projectID int64, objectIDs []int64, addTags []string, newClusterLabel string) ([]domain.Object, error) {
	if len(objectIDs) == 0 {
		return nil, apperrors.Validation("NO_OBJECTS_GIVEN", "no object ids provided")
	}
	if (len(addTags) > 0) == (newClusterLabel != "") {
		return nil, apperrors.Validation("AMBIGUOUS_BATCH_UPDATE",
			"exactly one of add_tags and new_cluster must be provided")
	}

	objects := make([]domain.Object, 0, len(objectIDs))
	for _, id := range objectIDs {
		object, err := s.objects.FindByIDInProject(ctx, id, projectID)
		if err != nil {
			return nil, err
		}
		if object == nil {
			return nil, apperrors.NotFound("OBJECT_NOT_FOUND",
				fmt.Sprintf("object %d not found in project", id))
		}
		objects = append(objects, *object)
	}

	var targetCluster *domain.Cluster
	if newClusterLabel != "" {
		cluster, err := s.clusters.FindByLabelAndProject(ctx, newClusterLabel, projectID)
		if err != nil {
			return nil, err
		}
		if cluster == nil {
			return nil, apperrors.NotFound("CLUSTER_NOT_FOUND", "cluster not found")
		}
		targetCluster = cluster
	}

	updated := make([]domain.Object, 0, len(objects))
	for _, object := range objects {
		var row *domain.Object
		var err error
		if targetCluster != nil {
			row, err = s.objects.UpdateCluster(ctx, object.ID, targetCluster.ID)
		} else {
			row, err = s.objects.UpdateTags(ctx, object.ID, mergeTags(object.Tags, addTags))
		}
		if err != nil {
			return updated, err
		}
		if row != nil {
			updated = append(updated, *row)
		}
	}

	s.invalidator.InvalidateClusterObjects(ctx)
	return updated, nil
}

// ResetProject moves every relocated object in the project back to its
// original cluster and returns how many were moved.
func (s *ObjectService) ResetProject(ctx context.Context, projectID int64) (int, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if project == nil {
		return 0, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	moved, err := s.objects.ResetProject(ctx, projectID)
	if err != nil {
		return moved, err
	}

	s.invalidator.InvalidateClusterObjects(ctx)
	s.logger.Info("project reset",
		zap.Int64("project_id", projectID), zap.Int("moved", moved))
	return moved, nil
}

// mergeTags appends the additions to the existing tags, dropping
// duplicates while keeping first-seen order.
func mergeTags(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(additions))
	merged := make([]string, 0, len(existing)+len(additions))
	for _, tag := range existing {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	for _, tag := range additions {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}
