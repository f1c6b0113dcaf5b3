// Package repository defines the persistence ports the services depend
// on. Implementations live in subpackages; the production one speaks
// PostgREST. Lookups that can legitimately find nothing return
// (nil, nil) — deciding whether a missing row is an error belongs to
// the service layer.
package repository

import (
	"context"

	"clusterize-backend/internal/domain"
)

// ProjectRepository provides access to the projects table.
type ProjectRepository interface {
	FindByUserID(ctx context.Context, userID int64) ([]domain.Project, int64, error)
	FindByID(ctx context.Context, projectID int64) (*domain.Project, error)
	FindByNameAndOwner(ctx context.Context, name string, ownerID int64) (*domain.Project, error)
	Create(ctx context.Context, ownerID int64, name string) (*domain.Project, error)
	Update(ctx context.Context, projectID int64, name string) (*domain.Project, error)
	Delete(ctx context.Context, projectID int64) error
}

// ClusterRepository provides access to the cluster table.
type ClusterRepository interface {
	FindByProjectID(ctx context.Context, projectID int64) ([]domain.Cluster, int64, error)
	FindByLabelAndProject(ctx context.Context, label string, projectID int64) (*domain.Cluster, error)
	// FindByLabelsAndProject resolves many cluster labels in one query.
	FindByLabelsAndProject(ctx context.Context, labels []string, projectID int64) ([]domain.Cluster, error)
	// FindByLabelNamesAndProject resolves clusters by their display names.
	FindByLabelNamesAndProject(ctx context.Context, labelNames []string, projectID int64) ([]domain.Cluster, error)
	Create(ctx context.Context, projectID int64, label, labelName string) (*domain.Cluster, error)
	UpdateLabelName(ctx context.Context, label, labelName string) (*domain.Cluster, error)
	DeleteByProjectID(ctx context.Context, projectID int64) (int, error)
	Statistics(ctx context.Context, projectID int64) ([]domain.ClusterStat, error)
}

// ObjectRepository provides access to the objects table.
type ObjectRepository interface {
	FindByClusterID(ctx context.Context, clusterID int64) ([]domain.Object, int64, error)
	FindByNameAndCluster(ctx context.Context, name string, clusterID int64) (*domain.Object, error)
	// FindByIDInProject locates an object anywhere within a project,
	// across all of its clusters.
	FindByIDInProject(ctx context.Context, objectID, projectID int64) (*domain.Object, error)
	Create(ctx context.Context, name string, clusterID int64) (*domain.Object, error)
	UpdateTags(ctx context.Context, objectID int64, tags []string) (*domain.Object, error)
	UpdateCluster(ctx context.Context, objectID, clusterID int64) (*domain.Object, error)
	DeleteByClusterID(ctx context.Context, clusterID int64) (int, error)
	// Search executes the resolved predicate in a single query. The
	// RelocatedOnly flag is applied as an in-memory post-filter.
	Search(ctx context.Context, query domain.ObjectQuery) ([]domain.Object, error)
	TagStatistics(ctx context.Context, projectID int64) ([]domain.TagStat, error)
	// ResetProject moves every relocated object in the project back to
	// its original cluster and returns how many were moved.
	ResetProject(ctx context.Context, projectID int64) (int, error)
	// ResetClusterMembers moves objects that originated in the cluster
	// back into it.
	ResetClusterMembers(ctx context.Context, clusterID int64) (int, error)
	// ResetMovedIn moves objects that were relocated into the cluster
	// back to their own original clusters.
	ResetMovedIn(ctx context.Context, clusterID int64) (int, error)
}

// UserRepository provides access to the users table.
type UserRepository interface {
	FindByAuthID(ctx context.Context, authID string) (*domain.User, error)
	Create(ctx context.Context, authID, email string) (*domain.User, error)
	Delete(ctx context.Context, authID string) error
}
