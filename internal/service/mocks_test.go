package service

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"clusterize-backend/internal/domain"
	"clusterize-backend/internal/storage"
)

// Hand-written testify mocks for the repository ports and the storage
// client, shared by the service tests.

type mockProjectRepo struct{ mock.Mock }

func (m *mockProjectRepo) FindByUserID(ctx context.Context, userID int64) ([]domain.Project, int64, error) {
	args := m.Called(ctx, userID)
	var rows []domain.Project
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Project)
	}
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockProjectRepo) FindByID(ctx context.Context, projectID int64) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) FindByNameAndOwner(ctx context.Context, name string, ownerID int64) (*domain.Project, error) {
	args := m.Called(ctx, name, ownerID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) Create(ctx context.Context, ownerID int64, name string) (*domain.Project, error) {
	args := m.Called(ctx, ownerID, name)
	if v := args.Get(0); v != nil {
		return v.(*domain.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) Update(ctx context.Context, projectID int64, name string) (*domain.Project, error) {
	args := m.Called(ctx, projectID, name)
	if v := args.Get(0); v != nil {
		return v.(*domain.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) Delete(ctx context.Context, projectID int64) error {
	return m.Called(ctx, projectID).Error(0)
}

type mockClusterRepo struct{ mock.Mock }

func (m *mockClusterRepo) FindByProjectID(ctx context.Context, projectID int64) ([]domain.Cluster, int64, error) {
	args := m.Called(ctx, projectID)
	var rows []domain.Cluster
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Cluster)
	}
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockClusterRepo) FindByLabelAndProject(ctx context.Context, label string, projectID int64) (*domain.Cluster, error) {
	args := m.Called(ctx, label, projectID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Cluster), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClusterRepo) FindByLabelsAndProject(ctx context.Context, labels []string, projectID int64) ([]domain.Cluster, error) {
	args := m.Called(ctx, labels, projectID)
	var rows []domain.Cluster
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Cluster)
	}
	return rows, args.Error(1)
}

func (m *mockClusterRepo) FindByLabelNamesAndProject(ctx context.Context, labelNames []string, projectID int64) ([]domain.Cluster, error) {
	args := m.Called(ctx, labelNames, projectID)
	var rows []domain.Cluster
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Cluster)
	}
	return rows, args.Error(1)
}

func (m *mockClusterRepo) Create(ctx context.Context, projectID int64, label, labelName string) (*domain.Cluster, error) {
	args := m.Called(ctx, projectID, label, labelName)
	if v := args.Get(0); v != nil {
		return v.(*domain.Cluster), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClusterRepo) UpdateLabelName(ctx context.Context, label, labelName string) (*domain.Cluster, error) {
	args := m.Called(ctx, label, labelName)
	if v := args.Get(0); v != nil {
		return v.(*domain.Cluster), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClusterRepo) DeleteByProjectID(ctx context.Context, projectID int64) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *mockClusterRepo) Statistics(ctx context.Context, projectID int64) ([]domain.ClusterStat, error) {
	args := m.Called(ctx, projectID)
	var stats []domain.ClusterStat
	if v := args.Get(0); v != nil {
		stats = v.([]domain.ClusterStat)
	}
	return stats, args.Error(1)
}

type mockObjectRepo struct{ mock.Mock }

func (m *mockObjectRepo) FindByClusterID(ctx context.Context, clusterID int64) ([]domain.Object, int64, error) {
	args := m.Called(ctx, clusterID)
	var rows []domain.Object
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Object)
	}
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockObjectRepo) FindByNameAndCluster(ctx context.Context, name string, clusterID int64) (*domain.Object, error) {
	args := m.Called(ctx, name, clusterID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectRepo) FindByIDInProject(ctx context.Context, objectID, projectID int64) (*domain.Object, error) {
	args := m.Called(ctx, objectID, projectID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectRepo) Create(ctx context.Context, name string, clusterID int64) (*domain.Object, error) {
	args := m.Called(ctx, name, clusterID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectRepo) UpdateTags(ctx context.Context, objectID int64, tags []string) (*domain.Object, error) {
	args := m.Called(ctx, objectID, tags)
	if v := args.Get(0); v != nil {
		return v.(*domain.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectRepo) UpdateCluster(ctx context.Context, objectID, clusterID int64) (*domain.Object, error) {
	args := m.Called(ctx, objectID, clusterID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectRepo) DeleteByClusterID(ctx context.Context, clusterID int64) (int, error) {
	args := m.Called(ctx, clusterID)
	return args.Int(0), args.Error(1)
}

func (m *mockObjectRepo) Search(ctx context.Context, query domain.ObjectQuery) ([]domain.Object, error) {
	args := m.Called(ctx, query)
	var rows []domain.Object
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Object)
	}
	return rows, args.Error(1)
}

func (m *mockObjectRepo) TagStatistics(ctx context.Context, projectID int64) ([]domain.TagStat, error) {
	args := m.Called(ctx, projectID)
	var stats []domain.TagStat
	if v := args.Get(0); v != nil {
		stats = v.([]domain.TagStat)
	}
	return stats, args.Error(1)
}

func (m *mockObjectRepo) ResetProject(ctx context.Context, projectID int64) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *mockObjectRepo) ResetClusterMembers(ctx context.Context, clusterID int64) (int, error) {
	args := m.Called(ctx, clusterID)
	return args.Int(0), args.Error(1)
}

func (m *mockObjectRepo) ResetMovedIn(ctx context.Context, clusterID int64) (int, error) {
	args := m.Called(ctx, clusterID)
	return args.Int(0), args.Error(1)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	args := m.Called(ctx, authID)
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, authID, email string) (*domain.User, error) {
	args := m.Called(ctx, authID, email)
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, authID string) error {
	return m.Called(ctx, authID).Error(0)
}

type mockBucketClient struct{ mock.Mock }

func (m *mockBucketClient) List(ctx context.Context, bucket string) ([]storage.Entry, error) {
	args := m.Called(ctx, bucket)
	var entries []storage.Entry
	if v := args.Get(0); v != nil {
		entries = v.([]storage.Entry)
	}
	return entries, args.Error(1)
}

func (m *mockBucketClient) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error {
	return m.Called(ctx, bucket, path, data, contentType).Error(0)
}

func (m *mockBucketClient) CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bucket, path, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockBucketClient) CreateBucket(ctx context.Context, bucket string) error {
	return m.Called(ctx, bucket).Error(0)
}

func (m *mockBucketClient) EmptyBucket(ctx context.Context, bucket string) error {
	return m.Called(ctx, bucket).Error(0)
}

func (m *mockBucketClient) DeleteBucket(ctx context.Context, bucket string) error {
	return m.Called(ctx, bucket).Error(0)
}

// fakeStore is an in-memory cache.Store that records deletes and scans.
// It is always available; store-outage behavior is covered by the cache
// package's own tests.
type fakeStore struct {
	data       map[string]string
	ttls       map[string]time.Duration
	deleted    []string
	scanCalls  []string
	setSkipped bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (f *fakeStore) Available() bool { return true }

func (f *fakeStore) Get(ctx context.Context, key string) (string, bool) {
	value, ok := f.data[key]
	return value, ok
}

func (f *fakeStore) GetResult(ctx context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if f.setSkipped {
		return false
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return true
}

func (f *fakeStore) Delete(ctx context.Context, keys ...string) bool {
	for _, key := range keys {
		delete(f.data, key)
		f.deleted = append(f.deleted, key)
	}
	return true
}

func (f *fakeStore) ScanDelete(ctx context.Context, pattern string) int {
	f.scanCalls = append(f.scanCalls, pattern)
	deleted := 0
	for key := range f.data {
		if matchPrefixPattern(pattern, key) {
			delete(f.data, key)
			deleted++
		}
	}
	return deleted
}

// matchPrefixPattern supports the one glob shape the invalidator uses:
// a literal prefix followed by '*'.
func matchPrefixPattern(pattern, key string) bool {
	if len(pattern) == 0 {
		return false
	}
	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return pattern == key
}
