package postgrest

import (
	"context"

	"github.com/supabase-community/supabase-go"

	"clusterize-backend/internal/domain"
	ports "clusterize-backend/internal/repository"
)

// ProjectRepository implements repository.ProjectRepository over PostgREST.
type ProjectRepository struct {
	repository
}

// NewProjectRepository creates a project repository.
func NewProjectRepository(client *supabase.Client) *ProjectRepository {
	return &ProjectRepository{repository{client: client}}
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

// FindByUserID returns all projects owned by the user with an exact count.
func (r *ProjectRepository) FindByUserID(ctx context.Context, userID int64) ([]domain.Project, int64, error) {
	data, count, err := r.client.From(projectsTable).
		Select("*", "exact", false).
		Eq("owner", formatID(userID)).
		ExecuteString()
	if err != nil {
		return nil, 0, queryFailed(err, "FindByUserID", "project")
	}
	rows, err := decodeRows[domain.Project]([]byte(data), "FindByUserID")
	if err != nil {
		return nil, 0, err
	}
	return rows, int64(count), nil
}

// FindByID returns the project or nil when it does not exist.
func (r *ProjectRepository) FindByID(ctx context.Context, projectID int64) (*domain.Project, error) {
	data, _, err := r.client.From(projectsTable).
		Select("*", "", false).
		Eq("id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByID", "project")
	}
	rows, err := decodeRows[domain.Project]([]byte(data), "FindByID")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// FindByNameAndOwner returns the owner's project with the given name, or nil.
func (r *ProjectRepository) FindByNameAndOwner(ctx context.Context, name string, ownerID int64) (*domain.Project, error) {
	data, _, err := r.client.From(projectsTable).
		Select("*", "", false).
		Eq("owner", formatID(ownerID)).
		Eq("project_name", name).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByNameAndOwner", "project")
	}
	rows, err := decodeRows[domain.Project]([]byte(data), "FindByNameAndOwner")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// Create inserts a project and returns the stored row.
func (r *ProjectRepository) Create(ctx context.Context, ownerID int64, name string) (*domain.Project, error) {
	payload := map[string]interface{}{
		"owner":        ownerID,
		"project_name": name,
	}
	data, _, err := r.client.From(projectsTable).
		Insert(payload, false, "", "representation", "").
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "Create", "project")
	}
	rows, err := decodeRows[domain.Project]([]byte(data), "Create")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// Update renames a project and returns the stored row.
func (r *ProjectRepository) Update(ctx context.Context, projectID int64, name string) (*domain.Project, error) {
	data, _, err := r.client.From(projectsTable).
		Update(map[string]interface{}{"project_name": name}, "representation", "").
		Eq("id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "Update", "project")
	}
	rows, err := decodeRows[domain.Project]([]byte(data), "Update")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// Delete removes the project row.
func (r *ProjectRepository) Delete(ctx context.Context, projectID int64) error {
	_, _, err := r.client.From(projectsTable).
		Delete("", "").
		Eq("id", formatID(projectID)).
		ExecuteString()
	if err != nil {
		return queryFailed(err, "Delete", "project")
	}
	return nil
}
