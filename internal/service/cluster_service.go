package service

import (
	"context"

	"go.uber.org/zap"

	"clusterize-backend/internal/cache"
	"clusterize-backend/internal/domain"
	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/repository"
	"clusterize-backend/internal/storage"
)

// ClusterService implements cluster lifecycle within a project. Every
// mutation ends by purging the cached object listings, because a
// cluster change can affect an unbounded number of cached filter
// combinations.
type ClusterService struct {
	projects    repository.ProjectRepository
	clusters    repository.ClusterRepository
	objects     repository.ObjectRepository
	bucket      storage.Client
	invalidator *cache.Invalidator
	logger      *zap.Logger
}

// NewClusterService creates a ClusterService.
func NewClusterService(
	projects repository.ProjectRepository,
	clusters repository.ClusterRepository,
	objects repository.ObjectRepository,
	bucket storage.Client,
	invalidator *cache.Invalidator,
	logger *zap.Logger,
) *ClusterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClusterService{
		projects:    projects,
		clusters:    clusters,
		objects:     objects,
		bucket:      bucket,
		invalidator: invalidator,
		logger:      logger,
	}
}

// ListClusters returns the project's clusters with an exact count.
func (s *ClusterService) ListClusters(ctx context.Context, projectID int64) ([]domain.Cluster, int64, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	if project == nil {
		return nil, 0, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}
	return s.clusters.FindByProjectID(ctx, projectID)
}

// ListClusterObjects returns the objects in one cluster, identified by
// its label within the project.
func (s *ClusterService) ListClusterObjects(ctx context.Context, projectID int64, label string) ([]domain.Object, int64, error) {
	cluster, err := s.clusters.FindByLabelAndProject(ctx, label, projectID)
	if err != nil {
		return nil, 0, err
	}
	if cluster == nil {
		return nil, 0, apperrors.NotFound("CLUSTER_NOT_FOUND", "cluster not found")
	}
	return s.objects.FindByClusterID(ctx, cluster.ID)
}

// CreateCluster creates a cluster in the project. Labels are unique per
// project.
func (s *ClusterService) CreateCluster(ctx context.Context, projectID int64, label, labelName string) (*domain.Cluster, error) {
	if label == "" {
		return nil, apperrors.Validation("CLUSTER_LABEL_REQUIRED", "cluster label is required")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	existing, err := s.clusters.FindByLabelAndProject(ctx, label, projectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("CLUSTER_EXISTS", "a cluster with this label already exists")
	}

	cluster, err := s.clusters.Create(ctx, projectID, label, labelName)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, apperrors.Internal("CLUSTER_CREATE_FAILED", "cluster insert returned no row")
	}

	s.invalidator.InvalidateProject(ctx, projectID, 0)
	s.invalidator.InvalidateClusterObjects(ctx)
	return cluster, nil
}

// CreateClustersFromUpload creates clusters and object rows from an
// upload manifest mapping cluster labels to object names. Object names
// are cross-checked against the bucket listing: a manifest entry whose
// file is not actually stored is skipped with a warning, and names
// already registered in their cluster are skipped silently, so the call
// is safe to repeat after a partial upload.
func (s *ClusterService) CreateClustersFromUpload(ctx context.Context, projectID int64, manifest map[string][]string) ([]domain.Cluster, error) {
	if len(manifest) == 0 {
		return nil, apperrors.Validation("EMPTY_MANIFEST", "upload manifest is empty")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	entries, err := s.bucket.List(ctx, storage.BucketName(projectID))
	if err != nil {
		return nil, err
	}
	stored := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		stored[entry.Name] = struct{}{}
	}

	var clusters []domain.Cluster
	for label, names := range manifest {
		cluster, err := s.clusters.FindByLabelAndProject(ctx, label, projectID)
		if err != nil {
			return clusters, err
		}
		if cluster == nil {
			cluster, err = s.clusters.Create(ctx, projectID, label, "")
			if err != nil {
				return clusters, err
			}
			if cluster == nil {
				return clusters, apperrors.Internal("CLUSTER_CREATE_FAILED", "cluster insert returned no row")
			}
		}
		clusters = append(clusters, *cluster)

		for _, name := range names {
			if _, ok := stored[name+".png"]; !ok {
				s.logger.Warn("manifest names a file missing from the bucket, skipping",
					zap.Int64("project_id", projectID),
					zap.String("cluster", label),
					zap.String("object", name))
				continue
			}
			existing, err := s.objects.FindByNameAndCluster(ctx, name, cluster.ID)
			if err != nil {
				return clusters, err
			}
			if existing != nil {
				continue
			}
			if _, err := s.objects.Create(ctx, name, cluster.ID); err != nil {
				return clusters, err
			}
		}
	}

	s.invalidator.InvalidateProject(ctx, projectID, 0)
	s.invalidator.InvalidateClusterObjects(ctx)
	s.logger.Info("clusters created from upload",
		zap.Int64("project_id", projectID), zap.Int("clusters", len(clusters)))
	return clusters, nil
}

// UpdateCluster changes a cluster's display name.
func (s *ClusterService) UpdateCluster(ctx context.Context, projectID int64, label, labelName string) (*domain.Cluster, error) {
	cluster, err := s.clusters.FindByLabelAndProject(ctx, label, projectID)
	if err != nil {
		return nil, err
	}
	if cluster == nil {
		return nil, apperrors.NotFound("CLUSTER_NOT_FOUND", "cluster not found")
	}

	updated, err := s.clusters.UpdateLabelName(ctx, label, labelName)
	if err != nil {
		return nil, err
	}

	s.invalidator.InvalidateClusterObjects(ctx)
	return updated, nil
}

// ResetCluster undoes relocations touching the cluster in both
// directions: objects that originated here come back, and objects that
// were moved in return to their own original clusters. Returns how many
// objects moved.
func (s *ClusterService) ResetCluster(ctx context.Context, projectID int64, label string) (int, error) {
	cluster, err := s.clusters.FindByLabelAndProject(ctx, label, projectID)
	if err != nil {
		return 0, err
	}
	if cluster == nil {
		return 0, apperrors.NotFound("CLUSTER_NOT_FOUND", "cluster not found")
	}

	returned, err := s.objects.ResetClusterMembers(ctx, cluster.ID)
	if err != nil {
		return 0, err
	}
	evicted, err := s.objects.ResetMovedIn(ctx, cluster.ID)
	if err != nil {
		return returned, err
	}

	s.invalidator.InvalidateClusterObjects(ctx)
	s.logger.Info("cluster reset",
		zap.Int64("cluster_id", cluster.ID),
		zap.Int("returned", returned),
		zap.Int("evicted", evicted))
	return returned + evicted, nil
}
