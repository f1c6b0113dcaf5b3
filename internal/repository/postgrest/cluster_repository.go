package postgrest

import (
	"context"
	"sort"

	"github.com/supabase-community/supabase-go"

	"clusterize-backend/internal/domain"
	ports "clusterize-backend/internal/repository"
)

// ClusterRepository implements repository.ClusterRepository over PostgREST.
type ClusterRepository struct {
	repository
}

// NewClusterRepository creates a cluster repository.
func NewClusterRepository(client *supabase.Client) *ClusterRepository {
	return &ClusterRepository{repository{client: client}}
}

var _ ports.ClusterRepository = (*ClusterRepository)(nil)

// FindByProjectID returns all clusters in the project with an exact count.
func (r *ClusterRepository) FindByProjectID(ctx context.Context, projectID int64) ([]domain.Cluster, int64, error) {
	data, count, err := r.client.From(clustersTable).
		Select("*", "exact", false).
		Eq("project_id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return nil, 0, queryFailed(err, "FindByProjectID", "cluster")
	}
	rows, err := decodeRows[domain.Cluster]([]byte(data), "FindByProjectID")
	if err != nil {
		return nil, 0, err
	}
	return rows, int64(count), nil
}

// FindByLabelAndProject returns the cluster with the given label, or nil.
func (r *ClusterRepository) FindByLabelAndProject(ctx context.Context, label string, projectID int64) (*domain.Cluster, error) {
	data, _, err := r.client.From(clustersTable).
		Select("*", "", false).
		Eq("project_id", formatID(projectID)).
		Eq("label", label).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByLabelAndProject", "cluster")
	}
	rows, err := decodeRows[domain.Cluster]([]byte(data), "FindByLabelAndProject")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// FindByLabelsAndProject resolves many labels in a single IN query
// instead of one lookup per label.
func (r *ClusterRepository) FindByLabelsAndProject(ctx context.Context, labels []string, projectID int64) ([]domain.Cluster, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	data, _, err := r.client.From(clustersTable).
		Select("*", "", false).
		Eq("project_id", formatID(projectID)).
		In("label", labels).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByLabelsAndProject", "cluster")
	}
	return decodeRows[domain.Cluster]([]byte(data), "FindByLabelsAndProject")
}

// FindByLabelNamesAndProject resolves clusters by display name in a
// single IN query.
func (r *ClusterRepository) FindByLabelNamesAndProject(ctx context.Context, labelNames []string, projectID int64) ([]domain.Cluster, error) {
	if len(labelNames) == 0 {
		return nil, nil
	}
	data, _, err := r.client.From(clustersTable).
		Select("*", "", false).
		Eq("project_id", formatID(projectID)).
		In("label_name", labelNames).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByLabelNamesAndProject", "cluster")
	}
	return decodeRows[domain.Cluster]([]byte(data), "FindByLabelNamesAndProject")
}

// Create inserts a cluster. The display name is only stored when non-empty.
func (r *ClusterRepository) Create(ctx context.Context, projectID int64, label, labelName string) (*domain.Cluster, error) {
	payload := map[string]interface{}{
		"project_id": projectID,
		"label":      label,
	}
	if labelName != "" {
		payload["label_name"] = labelName
	}
	data, _, err := r.client.From(clustersTable).
		Insert(payload, false, "", "representation", "").
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "Create", "cluster")
	}
	rows, err := decodeRows[domain.Cluster]([]byte(data), "Create")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// UpdateLabelName updates a cluster's display name by label.
func (r *ClusterRepository) UpdateLabelName(ctx context.Context, label, labelName string) (*domain.Cluster, error) {
	data, _, err := r.client.From(clustersTable).
		Update(map[string]interface{}{"label_name": labelName}, "representation", "").
		Eq("label", label).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "UpdateLabelName", "cluster")
	}
	rows, err := decodeRows[domain.Cluster]([]byte(data), "UpdateLabelName")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// DeleteByProjectID removes all clusters in the project and returns how
// many rows were deleted.
func (r *ClusterRepository) DeleteByProjectID(ctx context.Context, projectID int64) (int, error) {
	data, _, err := r.client.From(clustersTable).
		Delete("representation", "").
		Eq("project_id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return 0, queryFailed(err, "DeleteByProjectID", "cluster")
	}
	rows, err := decodeRows[domain.Cluster]([]byte(data), "DeleteByProjectID")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Statistics returns object counts per cluster, sorted by count descending.
func (r *ClusterRepository) Statistics(ctx context.Context, projectID int64) ([]domain.ClusterStat, error) {
	clusters, _, err := r.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.ClusterStat, 0, len(clusters))
	for _, cluster := range clusters {
		_, count, err := r.client.From(objectsTable).
			Select("id", "exact", true).
			Eq("cluster_id", formatID(cluster.ID)).
			ExecuteString()
		if err != nil {
			return nil, queryFailed(err, "Statistics", "cluster")
		}
		stats = append(stats, domain.ClusterStat{
			Name:      cluster.Label,
			Frequency: int(count),
			Label:     cluster.LabelName,
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Frequency > stats[j].Frequency })
	return stats, nil
}
