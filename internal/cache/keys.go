// Package cache provides the Redis-backed cache store adapter, the
// deterministic key builder for filtered object listings, and the
// invalidation policy that maps entity mutations to key deletions.
package cache

import (
	"fmt"
	"sort"
	"strings"

	"clusterize-backend/internal/domain"
)

// Key namespaces. Object-listing keys share the cluster_objects prefix
// so a single pattern scan can purge every cached filter combination.
const (
	projectKeyPrefix       = "project:"
	userProjectsKeyPrefix  = "user_projects:"
	objectListKeyNamespace = "cluster_objects:"

	// ObjectListKeyPattern matches every cached object listing.
	ObjectListKeyPattern = objectListKeyNamespace + "*"
)

// ProjectKey returns the cache key for a single project.
func ProjectKey(projectID int64) string {
	return fmt.Sprintf("%s%d", projectKeyPrefix, projectID)
}

// UserProjectsKey returns the cache key for a user's project list.
func UserProjectsKey(userID int64) string {
	return fmt.Sprintf("%s%d", userProjectsKeyPrefix, userID)
}

// ObjectListKey derives the cache key for a filtered object listing.
// The key is uniquely determined by the project id and the set values
// of the filter: list fields are sorted before joining, so two filter
// sets that differ only in element order produce the same key. Absent
// fields emit no segment at all.
func ObjectListKey(projectID int64, f domain.FilterSet) string {
	parts := []string{fmt.Sprintf("proj:%d", projectID)}

	if len(f.Clusters) > 0 {
		parts = append(parts, "clusters:"+joinSorted(f.Clusters))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, "tags:"+joinSorted(f.Tags))
	}
	if len(f.LabelNames) > 0 {
		parts = append(parts, "labels:"+joinSorted(f.LabelNames))
	}
	if f.RelocatedOnly {
		parts = append(parts, "relocated:true")
	}
	if f.Name != "" {
		parts = append(parts, "name:"+f.Name)
	}

	return objectListKeyNamespace + strings.Join(parts, "|")
}

// joinSorted sorts a copy of the values lexically and joins them. The
// input is never mutated; callers still own their slices.
func joinSorted(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
