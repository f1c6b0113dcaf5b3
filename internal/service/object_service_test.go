package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clusterize-backend/internal/cache"
	"clusterize-backend/internal/config"
	"clusterize-backend/internal/domain"
	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/storage"
)

type objectServiceFixture struct {
	projects *mockProjectRepo
	clusters *mockClusterRepo
	objects  *mockObjectRepo
	bucket   *mockBucketClient
	store    *fakeStore
	svc      *ObjectService
}

func newObjectServiceFixture(t *testing.T) *objectServiceFixture {
	t.Helper()
	f := &objectServiceFixture{
		projects: &mockProjectRepo{},
		clusters: &mockClusterRepo{},
		objects:  &mockObjectRepo{},
		bucket:   &mockBucketClient{},
		store:    newFakeStore(),
	}

	batchCfg := storage.DefaultBatchConfig()
	batchCfg.RetryBackoffMin = time.Millisecond
	batchCfg.RetryBackoffMax = 2 * time.Millisecond
	urls := storage.NewURLBatchGenerator(f.bucket, batchCfg, zap.NewNop(), nil)

	f.svc = NewObjectService(
		f.projects, f.clusters, f.objects,
		f.store,
		cache.NewInvalidator(f.store, zap.NewNop(), nil),
		urls,
		config.Cache{
			ProjectTTL:        time.Hour,
			UserProjectsTTL:   30 * time.Minute,
			ClusterObjectsTTL: 23 * time.Hour,
		},
		config.Storage{
			SignedURLLifetime:     24 * time.Hour,
			SignedURLSafetyMargin: time.Hour,
		},
		zap.NewNop(),
	)
	return f
}

func (f *objectServiceFixture) seedListing(key string, expiresAt time.Time, objects ...domain.ObjectWithURL) {
	payload, _ := json.Marshal(cachedListing{
		Objects:   objects,
		Count:     len(objects),
		ExpiresAt: expiresAt.Unix(),
	})
	f.store.data[key] = string(payload)
}

func signedURL(u string) domain.ObjectWithURL {
	return domain.ObjectWithURL{
		Object: domain.Object{ID: 1, Name: "a", ClusterID: 1, OriginalCluster: 1},
		URL:    &u,
	}
}

func TestListObjectsServesValidCacheHit(t *testing.T) {
	f := newObjectServiceFixture(t)
	filter := domain.FilterSet{Clusters: []string{"a"}}
	key := cache.ObjectListKey(5, filter)
	f.seedListing(key, time.Now().Add(time.Hour), signedURL("https://signed.example/a.png"))

	// No repository expectations: a valid hit must short-circuit.
	listing, err := f.svc.ListObjects(context.Background(), 5, filter)

	require.NoError(t, err)
	assert.True(t, listing.Cached)
	assert.Equal(t, 1, listing.Count)
	f.objects.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestListObjectsEmbeddedExpiryTakesPrecedence(t *testing.T) {
	f := newObjectServiceFixture(t)
	filter := domain.FilterSet{}
	key := cache.ObjectListKey(5, filter)
	// The store still holds the entry, but its embedded expiry passed.
	f.seedListing(key, time.Now().Add(-time.Minute), signedURL("https://stale.example/a.png"))

	rows := []domain.Object{{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10}}
	f.clusters.On("FindByProjectID", mock.Anything, int64(5)).
		Return([]domain.Cluster{{ID: 10, ProjectID: 5, Label: "a"}}, int64(1), nil)
	f.objects.On("Search", mock.Anything, mock.Anything).Return(rows, nil)
	f.bucket.On("CreateSignedURL", mock.Anything, "5", "a.png", mock.Anything).
		Return("https://fresh.example/a.png", nil)

	listing, err := f.svc.ListObjects(context.Background(), 5, filter)

	require.NoError(t, err)
	assert.False(t, listing.Cached)
	// The stale key was explicitly deleted before miss handling.
	assert.Contains(t, f.store.deleted, key)
	require.Len(t, listing.Objects, 1)
	require.NotNil(t, listing.Objects[0].URL)
	assert.Equal(t, "https://fresh.example/a.png", *listing.Objects[0].URL)
}

func TestListObjectsRejectsPartialClusterResolution(t *testing.T) {
	f := newObjectServiceFixture(t)
	filter := domain.FilterSet{Clusters: []string{"a", "b"}}

	f.clusters.On("FindByLabelsAndProject", mock.Anything, []string{"a", "b"}, int64(5)).
		Return([]domain.Cluster{{ID: 10, ProjectID: 5, Label: "a"}}, nil)

	_, err := f.svc.ListObjects(context.Background(), 5, filter)

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "clusters not found: b")
	// Partial matches must not reach the query step.
	f.objects.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestListObjectsEmptyResultIsNotFound(t *testing.T) {
	f := newObjectServiceFixture(t)

	f.clusters.On("FindByProjectID", mock.Anything, int64(5)).
		Return([]domain.Cluster{{ID: 10, ProjectID: 5, Label: "a"}}, int64(1), nil)
	f.objects.On("Search", mock.Anything, mock.Anything).Return([]domain.Object{}, nil)

	_, err := f.svc.ListObjects(context.Background(), 5, domain.FilterSet{})

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "no objects found")
}

func TestListObjectsPopulatesCacheWithEmbeddedExpiry(t *testing.T) {
	f := newObjectServiceFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	filter := domain.FilterSet{Tags: []string{"x"}}
	rows := []domain.Object{{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10, Tags: []string{"x"}}}
	f.clusters.On("FindByProjectID", mock.Anything, int64(5)).
		Return([]domain.Cluster{{ID: 10, ProjectID: 5, Label: "a"}}, int64(1), nil)
	f.objects.On("Search", mock.Anything, mock.Anything).Return(rows, nil)
	f.bucket.On("CreateSignedURL", mock.Anything, "5", "a.png", mock.Anything).
		Return("https://signed.example/a.png", nil)

	listing, err := f.svc.ListObjects(context.Background(), 5, filter)

	require.NoError(t, err)
	assert.False(t, listing.Cached)

	key := cache.ObjectListKey(5, filter)
	payload, ok := f.store.data[key]
	require.True(t, ok)

	var entry cachedListing
	require.NoError(t, json.Unmarshal([]byte(payload), &entry))
	// Embedded expiry = now + lifetime - safety margin.
	assert.Equal(t, now.Add(23*time.Hour).Unix(), entry.ExpiresAt)
	assert.Equal(t, 1, entry.Count)
	// Store TTL is the configured backstop.
	assert.Equal(t, 23*time.Hour, f.store.ttls[key])
}

func TestListObjectsFailedCacheWriteDoesNotFailRequest(t *testing.T) {
	f := newObjectServiceFixture(t)
	f.store.setSkipped = true

	f.clusters.On("FindByProjectID", mock.Anything, int64(5)).
		Return([]domain.Cluster{{ID: 10, ProjectID: 5, Label: "a"}}, int64(1), nil)
	f.objects.On("Search", mock.Anything, mock.Anything).
		Return([]domain.Object{{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10}}, nil)
	f.bucket.On("CreateSignedURL", mock.Anything, "5", "a.png", mock.Anything).
		Return("https://signed.example/a.png", nil)

	listing, err := f.svc.ListObjects(context.Background(), 5, domain.FilterSet{})

	require.NoError(t, err)
	assert.Equal(t, 1, listing.Count)
}

func TestListObjectsUnionsLabelNameResolution(t *testing.T) {
	f := newObjectServiceFixture(t)
	filter := domain.FilterSet{Clusters: []string{"a"}, LabelNames: []string{"Animals"}}

	f.clusters.On("FindByLabelsAndProject", mock.Anything, []string{"a"}, int64(5)).
		Return([]domain.Cluster{{ID: 10, ProjectID: 5, Label: "a"}}, nil)
	// The label-name lookup resolves an overlapping and a new cluster.
	f.clusters.On("FindByLabelNamesAndProject", mock.Anything, []string{"Animals"}, int64(5)).
		Return([]domain.Cluster{
			{ID: 10, ProjectID: 5, Label: "a", LabelName: "Animals"},
			{ID: 11, ProjectID: 5, Label: "b", LabelName: "Animals"},
		}, nil)
	f.objects.On("Search", mock.Anything, domain.ObjectQuery{ClusterIDs: []int64{10, 11}}).
		Return([]domain.Object{{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10}}, nil)
	f.bucket.On("CreateSignedURL", mock.Anything, "5", "a.png", mock.Anything).
		Return("https://signed.example/a.png", nil)

	listing, err := f.svc.ListObjects(context.Background(), 5, filter)

	require.NoError(t, err)
	assert.Equal(t, 1, listing.Count)
	f.objects.AssertExpectations(t)
}

func TestUpdateObjectPurgesCachedListings(t *testing.T) {
	f := newObjectServiceFixture(t)
	f.store.data["cluster_objects:proj:5|tags:x"] = "{}"

	obj := &domain.Object{ID: 7, Name: "a", ClusterID: 10, OriginalCluster: 10}
	f.objects.On("FindByIDInProject", mock.Anything, int64(7), int64(5)).Return(obj, nil)
	f.objects.On("UpdateTags", mock.Anything, int64(7), []string{"x", "y"}).
		Return(&domain.Object{ID: 7, Name: "a", ClusterID: 10, OriginalCluster: 10, Tags: []string{"x", "y"}}, nil)

	updated, err := f.svc.UpdateObject(context.Background(), 5, 7, []string{"x", "y"}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, updated.Tags)
	assert.Contains(t, f.store.scanCalls, cache.ObjectListKeyPattern)
	assert.NotContains(t, f.store.data, "cluster_objects:proj:5|tags:x")
}

func TestUpdateObjectRequiresSomethingToUpdate(t *testing.T) {
	f := newObjectServiceFixture(t)

	_, err := f.svc.UpdateObject(context.Background(), 5, 7, nil, "")

	assert.True(t, apperrors.IsValidation(err))
}

func TestBatchUpdateRequiresExactlyOneMutation(t *testing.T) {
	f := newObjectServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.BatchUpdateObjects(ctx, 5, []int64{1}, nil, "")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.BatchUpdateObjects(ctx, 5, []int64{1}, []string{"x"}, "b")
	assert.True(t, apperrors.IsValidation(err))
}

func TestBatchUpdateValidatesAllObjectsBeforeWriting(t *testing.T) {
	f := newObjectServiceFixture(t)

	f.objects.On("FindByIDInProject", mock.Anything, int64(1), int64(5)).
		Return(&domain.Object{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10}, nil)
	f.objects.On("FindByIDInProject", mock.Anything, int64(2), int64(5)).Return(nil, nil)

	_, err := f.svc.BatchUpdateObjects(context.Background(), 5, []int64{1, 2}, []string{"x"}, "")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	// A missing object fails the batch before any write happens.
	f.objects.AssertNotCalled(t, "UpdateTags", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchUpdateMergesTagsWithoutDuplicates(t *testing.T) {
	f := newObjectServiceFixture(t)

	f.objects.On("FindByIDInProject", mock.Anything, int64(1), int64(5)).
		Return(&domain.Object{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10, Tags: []string{"x", "y"}}, nil)
	f.objects.On("UpdateTags", mock.Anything, int64(1), []string{"x", "y", "z"}).
		Return(&domain.Object{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10, Tags: []string{"x", "y", "z"}}, nil)

	updated, err := f.svc.BatchUpdateObjects(context.Background(), 5, []int64{1}, []string{"y", "z"}, "")

	require.NoError(t, err)
	require.Len(t, updated, 1)
	f.objects.AssertExpectations(t)
}

func TestBatchUpdateMovesObjectsToNamedCluster(t *testing.T) {
	f := newObjectServiceFixture(t)

	f.objects.On("FindByIDInProject", mock.Anything, int64(1), int64(5)).
		Return(&domain.Object{ID: 1, Name: "a", ClusterID: 10, OriginalCluster: 10}, nil)
	f.clusters.On("FindByLabelAndProject", mock.Anything, "b", int64(5)).
		Return(&domain.Cluster{ID: 11, ProjectID: 5, Label: "b"}, nil)
	f.objects.On("UpdateCluster", mock.Anything, int64(1), int64(11)).
		Return(&domain.Object{ID: 1, Name: "a", ClusterID: 11, OriginalCluster: 10}, nil)

	updated, err := f.svc.BatchUpdateObjects(context.Background(), 5, []int64{1}, nil, "b")

	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.True(t, updated[0].Relocated())
	assert.Contains(t, f.store.scanCalls, cache.ObjectListKeyPattern)
}

func TestResetProjectPurgesCachedListings(t *testing.T) {
	f := newObjectServiceFixture(t)

	f.projects.On("FindByID", mock.Anything, int64(5)).
		Return(&domain.Project{ID: 5, Owner: 1, Name: "p"}, nil)
	f.objects.On("ResetProject", mock.Anything, int64(5)).Return(3, nil)

	moved, err := f.svc.ResetProject(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 3, moved)
	assert.Contains(t, f.store.scanCalls, cache.ObjectListKeyPattern)
}

func TestMergeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, mergeTags([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, mergeTags(nil, []string{"a", "a"}))
	assert.Equal(t, []string{"a"}, mergeTags([]string{"a"}, nil))
}
