package postgrest

import (
	"context"
	"sort"

	"github.com/supabase-community/supabase-go"

	"clusterize-backend/internal/domain"
	ports "clusterize-backend/internal/repository"
)

// ObjectRepository implements repository.ObjectRepository over PostgREST.
type ObjectRepository struct {
	repository
}

// NewObjectRepository creates an object repository.
func NewObjectRepository(client *supabase.Client) *ObjectRepository {
	return &ObjectRepository{repository{client: client}}
}

var _ ports.ObjectRepository = (*ObjectRepository)(nil)

// FindByClusterID returns all objects in a cluster with an exact count.
func (r *ObjectRepository) FindByClusterID(ctx context.Context, clusterID int64) ([]domain.Object, int64, error) {
	data, count, err := r.client.From(objectsTable).
		Select("*", "exact", false).
		Eq("cluster_id", formatID(clusterID)).
		ExecuteString()
	if err != nil {
		return nil, 0, queryFailed(err, "FindByClusterID", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "FindByClusterID")
	if err != nil {
		return nil, 0, err
	}
	return rows, int64(count), nil
}

// FindByNameAndCluster returns the named object within a cluster, or nil.
func (r *ObjectRepository) FindByNameAndCluster(ctx context.Context, name string, clusterID int64) (*domain.Object, error) {
	data, _, err := r.client.From(objectsTable).
		Select("*", "", false).
		Eq("name", name).
		Eq("cluster_id", formatID(clusterID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByNameAndCluster", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "FindByNameAndCluster")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// FindByIDInProject locates an object anywhere within a project using
// an inner join through its cluster.
func (r *ObjectRepository) FindByIDInProject(ctx context.Context, objectID, projectID int64) (*domain.Object, error) {
	data, _, err := r.client.From(objectsTable).
		Select("*, cluster!inner(project_id)", "", false).
		Eq("id", formatID(objectID)).
		Eq("cluster.project_id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByIDInProject", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "FindByIDInProject")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// Create inserts an object into a cluster.
func (r *ObjectRepository) Create(ctx context.Context, name string, clusterID int64) (*domain.Object, error) {
	payload := map[string]interface{}{
		"name":       name,
		"cluster_id": clusterID,
	}
	data, _, err := r.client.From(objectsTable).
		Insert(payload, false, "", "representation", "").
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "Create", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "Create")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// UpdateTags replaces an object's tag collection.
func (r *ObjectRepository) UpdateTags(ctx context.Context, objectID int64, tags []string) (*domain.Object, error) {
	data, _, err := r.client.From(objectsTable).
		Update(map[string]interface{}{"tags": tags}, "representation", "").
		Eq("id", formatID(objectID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "UpdateTags", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "UpdateTags")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// UpdateCluster moves an object to another cluster.
func (r *ObjectRepository) UpdateCluster(ctx context.Context, objectID, clusterID int64) (*domain.Object, error) {
	data, _, err := r.client.From(objectsTable).
		Update(map[string]interface{}{"cluster_id": clusterID}, "representation", "").
		Eq("id", formatID(objectID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "UpdateCluster", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "UpdateCluster")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// DeleteByClusterID removes all objects in a cluster and returns how
// many rows were deleted.
func (r *ObjectRepository) DeleteByClusterID(ctx context.Context, clusterID int64) (int, error) {
	data, _, err := r.client.From(objectsTable).
		Delete("representation", "").
		Eq("cluster_id", formatID(clusterID)).
		ExecuteString()
	if err != nil {
		return 0, queryFailed(err, "DeleteByClusterID", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "DeleteByClusterID")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Search executes the resolved filter predicate in a single query:
// cluster ids with IN, name with equality, tags with contains-all.
// The relocated-only flag cannot be pushed down (PostgREST has no
// column-to-column comparison) and is applied in memory afterwards.
func (r *ObjectRepository) Search(ctx context.Context, query domain.ObjectQuery) ([]domain.Object, error) {
	builder := r.client.From(objectsTable).Select("*", "", false)

	if len(query.ClusterIDs) > 0 {
		builder = builder.In("cluster_id", formatIDs(query.ClusterIDs))
	}
	if query.Name != "" {
		builder = builder.Eq("name", query.Name)
	}
	if len(query.Tags) > 0 {
		builder = builder.Contains("tags", query.Tags)
	}

	data, _, err := builder.ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "Search", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "Search")
	if err != nil {
		return nil, err
	}

	if !query.RelocatedOnly {
		return rows, nil
	}
	relocated := rows[:0]
	for _, obj := range rows {
		if obj.Relocated() {
			relocated = append(relocated, obj)
		}
	}
	return relocated, nil
}

// TagStatistics counts tag usage across the project's objects, sorted
// by count descending.
func (r *ObjectRepository) TagStatistics(ctx context.Context, projectID int64) ([]domain.TagStat, error) {
	data, _, err := r.client.From(objectsTable).
		Select("tags, cluster!inner(project_id)", "", false).
		Eq("cluster.project_id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "TagStatistics", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "TagStatistics")
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, obj := range rows {
		for _, tag := range obj.Tags {
			if tag != "" {
				counts[tag]++
			}
		}
	}

	stats := make([]domain.TagStat, 0, len(counts))
	for tag, count := range counts {
		stats = append(stats, domain.TagStat{Name: tag, Frequency: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// ResetProject moves every relocated object in the project back to its
// original cluster. Objects already in place are left untouched.
func (r *ObjectRepository) ResetProject(ctx context.Context, projectID int64) (int, error) {
	clustersData, _, err := r.client.From(clustersTable).
		Select("id", "", false).
		Eq("project_id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return 0, queryFailed(err, "ResetProject", "cluster")
	}
	clusters, err := decodeRows[domain.Cluster]([]byte(clustersData), "ResetProject")
	if err != nil {
		return 0, err
	}
	if len(clusters) == 0 {
		return 0, nil
	}

	clusterIDs := make([]int64, len(clusters))
	for i, c := range clusters {
		clusterIDs[i] = c.ID
	}

	objectsData, _, err := r.client.From(objectsTable).
		Select("id, cluster_id, original_cluster", "", false).
		In("cluster_id", formatIDs(clusterIDs)).
		ExecuteString()
	if err != nil {
		return 0, queryFailed(err, "ResetProject", "object")
	}
	objects, err := decodeRows[domain.Object]([]byte(objectsData), "ResetProject")
	if err != nil {
		return 0, err
	}

	// Each relocated object needs its own target cluster, so the moves
	// cannot be expressed as one bulk update.
	moved := 0
	for _, obj := range objects {
		if !obj.Relocated() {
			continue
		}
		if _, err := r.UpdateCluster(ctx, obj.ID, obj.OriginalCluster); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// ResetClusterMembers moves objects that originated in the cluster but
// currently live elsewhere back into it, as a single bulk update.
func (r *ObjectRepository) ResetClusterMembers(ctx context.Context, clusterID int64) (int, error) {
	data, _, err := r.client.From(objectsTable).
		Update(map[string]interface{}{"cluster_id": clusterID}, "representation", "").
		Eq("original_cluster", formatID(clusterID)).
		Neq("cluster_id", formatID(clusterID)).
		ExecuteString()
	if err != nil {
		return 0, queryFailed(err, "ResetClusterMembers", "object")
	}
	rows, err := decodeRows[domain.Object]([]byte(data), "ResetClusterMembers")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ResetMovedIn moves objects that were relocated into the cluster back
// to their own original clusters. The targets differ per object, so the
// moves are issued individually after one query for the affected rows.
func (r *ObjectRepository) ResetMovedIn(ctx context.Context, clusterID int64) (int, error) {
	data, _, err := r.client.From(objectsTable).
		Select("id, original_cluster", "", false).
		Eq("cluster_id", formatID(clusterID)).
		Neq("original_cluster", formatID(clusterID)).
		ExecuteString()
	if err != nil {
		return 0, queryFailed(err, "ResetMovedIn", "object")
	}
	objects, err := decodeRows[domain.Object]([]byte(data), "ResetMovedIn")
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, obj := range objects {
		if _, err := r.UpdateCluster(ctx, obj.ID, obj.OriginalCluster); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
