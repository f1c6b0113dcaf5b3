package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"clusterize-backend/internal/cache"
	"clusterize-backend/internal/config"
	"clusterize-backend/internal/domain"
	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/repository"
	"clusterize-backend/internal/storage"
)

// ProjectStatistics is a project together with its cluster and tag
// usage breakdowns.
type ProjectStatistics struct {
	Project  domain.Project       `json:"project"`
	Clusters []domain.ClusterStat `json:"clusters"`
	Tags     []domain.TagStat     `json:"tags"`
}

// ProjectService implements project lifecycle and lookups. Reads go
// through the cache; every mutation invalidates the affected keys after
// it commits.
type ProjectService struct {
	projects    repository.ProjectRepository
	clusters    repository.ClusterRepository
	objects     repository.ObjectRepository
	bucket      storage.Client
	store       cache.Store
	invalidator *cache.Invalidator
	ttl         config.Cache
	logger      *zap.Logger
}

// NewProjectService creates a ProjectService.
func NewProjectService(
	projects repository.ProjectRepository,
	clusters repository.ClusterRepository,
	objects repository.ObjectRepository,
	bucket storage.Client,
	store cache.Store,
	invalidator *cache.Invalidator,
	ttl config.Cache,
	logger *zap.Logger,
) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects:    projects,
		clusters:    clusters,
		objects:     objects,
		bucket:      bucket,
		store:       store,
		invalidator: invalidator,
		ttl:         ttl,
		logger:      logger,
	}
}

// GetUserProjects returns all projects owned by the user. The second
// return reports whether the result came from the cache.
func (s *ProjectService) GetUserProjects(ctx context.Context, userID int64) ([]domain.Project, bool, error) {
	key := cache.UserProjectsKey(userID)
	if payload, ok := s.store.Get(ctx, key); ok {
		var projects []domain.Project
		if err := json.Unmarshal([]byte(payload), &projects); err == nil {
			return projects, true, nil
		}
		// Undecodable entries are purged, never served.
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
		s.store.Delete(ctx, key)
	}

	projects, _, err := s.projects.FindByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if payload, err := json.Marshal(projects); err == nil {
		s.store.Set(ctx, key, string(payload), s.ttl.UserProjectsTTL)
	}
	return projects, false, nil
}

// GetProject returns one project. The second return reports whether the
// result came from the cache.
func (s *ProjectService) GetProject(ctx context.Context, projectID int64) (*domain.Project, bool, error) {
	key := cache.ProjectKey(projectID)
	if payload, ok := s.store.Get(ctx, key); ok {
		var project domain.Project
		if err := json.Unmarshal([]byte(payload), &project); err == nil {
			return &project, true, nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
		s.store.Delete(ctx, key)
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	if project == nil {
		return nil, false, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	if payload, err := json.Marshal(project); err == nil {
		s.store.Set(ctx, key, string(payload), s.ttl.ProjectTTL)
	}
	return project, false, nil
}

// GetProjectWithStatistics returns the project with its cluster and tag
// breakdowns. Statistics are decoration: a failing aggregation is
// logged and leaves the corresponding list empty rather than failing
// the request.
func (s *ProjectService) GetProjectWithStatistics(ctx context.Context, projectID int64) (*ProjectStatistics, error) {
	project, _, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := &ProjectStatistics{
		Project:  *project,
		Clusters: []domain.ClusterStat{},
		Tags:     []domain.TagStat{},
	}

	if clusterStats, err := s.clusters.Statistics(ctx, projectID); err != nil {
		s.logger.Warn("cluster statistics unavailable",
			zap.Int64("project_id", projectID), zap.Error(err))
	} else if clusterStats != nil {
		stats.Clusters = clusterStats
	}

	if tagStats, err := s.objects.TagStatistics(ctx, projectID); err != nil {
		s.logger.Warn("tag statistics unavailable",
			zap.Int64("project_id", projectID), zap.Error(err))
	} else if tagStats != nil {
		stats.Tags = tagStats
	}

	return stats, nil
}

// CreateProject creates a project and its private storage bucket.
// Project names are unique per owner. When the bucket cannot be
// created the project row is rolled back so the two never diverge.
func (s *ProjectService) CreateProject(ctx context.Context, userID int64, name string) (*domain.Project, error) {
	if name == "" {
		return nil, apperrors.Validation("PROJECT_NAME_REQUIRED", "project name is required")
	}

	existing, err := s.projects.FindByNameAndOwner(ctx, name, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("PROJECT_EXISTS", "a project with this name already exists")
	}

	project, err := s.projects.Create(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.Internal("PROJECT_CREATE_FAILED", "project insert returned no row")
	}

	if err := s.bucket.CreateBucket(ctx, storage.BucketName(project.ID)); err != nil {
		s.logger.Error("bucket creation failed, rolling back project",
			zap.Int64("project_id", project.ID), zap.Error(err))
		if delErr := s.projects.Delete(ctx, project.ID); delErr != nil {
			s.logger.Error("project rollback failed",
				zap.Int64("project_id", project.ID), zap.Error(delErr))
		}
		return nil, err
	}

	s.invalidator.InvalidateProject(ctx, project.ID, userID)
	s.logger.Info("project created",
		zap.Int64("project_id", project.ID), zap.Int64("user_id", userID))
	return project, nil
}

// UpdateProject renames a project. The owner is not known at this call
// site, so only the project's own key is invalidated.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID int64, name string) (*domain.Project, error) {
	if name == "" {
		return nil, apperrors.Validation("PROJECT_NAME_REQUIRED", "project name is required")
	}

	existing, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	project, err := s.projects.Update(ctx, projectID, name)
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateProject(ctx, projectID, 0)
	return project, nil
}

// DeleteProject removes a project and everything it owns: objects per
// cluster, the clusters, the storage bucket, and finally the project
// row. Dependent failures are logged and skipped so a half-broken
// project can still be deleted; only a failure to remove the project
// row itself fails the call.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID int64) error {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	clusters, _, err := s.clusters.FindByProjectID(ctx, projectID)
	if err != nil {
		s.logger.Warn("listing clusters for cascade failed, continuing",
			zap.Int64("project_id", projectID), zap.Error(err))
	}
	for _, cluster := range clusters {
		if _, err := s.objects.DeleteByClusterID(ctx, cluster.ID); err != nil {
			s.logger.Warn("deleting cluster objects failed, continuing",
				zap.Int64("cluster_id", cluster.ID), zap.Error(err))
		}
	}
	if _, err := s.clusters.DeleteByProjectID(ctx, projectID); err != nil {
		s.logger.Warn("deleting clusters failed, continuing",
			zap.Int64("project_id", projectID), zap.Error(err))
	}

	bucketID := storage.BucketName(projectID)
	if err := s.bucket.EmptyBucket(ctx, bucketID); err != nil {
		s.logger.Warn("emptying bucket failed, continuing",
			zap.String("bucket", bucketID), zap.Error(err))
	}
	if err := s.bucket.DeleteBucket(ctx, bucketID); err != nil {
		s.logger.Warn("deleting bucket failed, continuing",
			zap.String("bucket", bucketID), zap.Error(err))
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return err
	}

	s.invalidator.InvalidateProject(ctx, projectID, project.Owner)
	s.invalidator.InvalidateClusterObjects(ctx)
	s.logger.Info("project deleted",
		zap.Int64("project_id", projectID), zap.Int64("user_id", project.Owner))
	return nil
}
