// Package domain defines the entities stored in the relational backend
// and the value types the services exchange. JSON tags match the
// PostgREST column names so rows unmarshal directly.
package domain

// Project is a user-owned workspace. Each project owns one storage
// bucket named after its id.
type Project struct {
	ID    int64  `json:"id"`
	Owner int64  `json:"owner"`
	Name  string `json:"project_name"`
}

// Cluster groups objects within a project. Label is the cluster's
// stable identifier inside the project; LabelName is an optional
// human-readable name.
type Cluster struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Label     string `json:"label"`
	LabelName string `json:"label_name,omitempty"`
}

// Object is a stored item. OriginalCluster records the cluster the
// object was first created in; an object whose ClusterID differs from
// it has been relocated.
type Object struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	ClusterID       int64    `json:"cluster_id"`
	OriginalCluster int64    `json:"original_cluster"`
	Tags            []string `json:"tags"`
}

// Relocated reports whether the object has been moved out of its
// original cluster.
func (o Object) Relocated() bool {
	return o.ClusterID != o.OriginalCluster
}

// ObjectWithURL is an object annotated with a signed download URL.
// URL is nil when URL generation failed for the item.
type ObjectWithURL struct {
	Object
	URL *string `json:"url"`
}

// User is an account mapped from the external identity provider.
type User struct {
	ID     int64  `json:"id"`
	AuthID string `json:"auth0_id"`
	Email  string `json:"email,omitempty"`
}

// FilterSet is the normalized combination of criteria identifying one
// logical object-listing query. All list fields are order-independent
// sets; an absent list and an empty list are equivalent. Tags use AND
// semantics: every listed tag must be present on a matching object.
type FilterSet struct {
	Clusters      []string `json:"clusters,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	LabelNames    []string `json:"label_names,omitempty"`
	Name          string   `json:"name,omitempty"`
	RelocatedOnly bool     `json:"relocated_only,omitempty"`
}

// Empty reports whether no filter criteria are set.
func (f FilterSet) Empty() bool {
	return len(f.Clusters) == 0 && len(f.Tags) == 0 && len(f.LabelNames) == 0 &&
		f.Name == "" && !f.RelocatedOnly
}

// ObjectQuery is the resolved store predicate the object repository
// executes. ClusterIDs filters with IN, Name with equality and Tags
// with contains-all. RelocatedOnly cannot be pushed down to the store
// (PostgREST has no column-to-column comparison) and is applied as a
// post-filter in memory.
type ObjectQuery struct {
	ClusterIDs    []int64
	Name          string
	Tags          []string
	RelocatedOnly bool
}

// ClusterStat is a cluster's object count, for project statistics.
type ClusterStat struct {
	Name      string `json:"name"`
	Frequency int    `json:"frequency"`
	Label     string `json:"label"`
}

// TagStat is a tag's usage count, for project statistics.
type TagStat struct {
	Name      string `json:"name"`
	Frequency int    `json:"frequency"`
}
