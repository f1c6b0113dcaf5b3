// Package postgrest implements the repository ports over Supabase's
// PostgREST interface. Queries mirror the table layout: projects,
// cluster, objects and users, with objects joined to cluster for
// project-scoped lookups.
package postgrest

import (
	"encoding/json"
	"strconv"

	"github.com/supabase-community/supabase-go"

	apperrors "clusterize-backend/internal/errors"
)

// Table names in the backing schema.
const (
	projectsTable = "projects"
	clustersTable = "cluster"
	objectsTable  = "objects"
	usersTable    = "users"
)

// repository carries the shared Supabase client.
type repository struct {
	client *supabase.Client
}

// decodeRows unmarshals a PostgREST response body into rows.
func decodeRows[T any](data []byte, operation string) ([]T, error) {
	var rows []T
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperrors.Internal("DECODE_FAILED", "failed to decode store response").
			WithOperation(operation).WithCause(err)
	}
	return rows, nil
}

// firstOrNil returns a pointer to the first row, or nil for an empty set.
func firstOrNil[T any](rows []T) *T {
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

// queryFailed wraps a PostgREST transport error.
func queryFailed(err error, operation, resource string) error {
	return apperrors.Internal("QUERY_FAILED", "database query failed").
		WithOperation(operation).WithResource(resource).WithCause(err)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = formatID(id)
	}
	return out
}
