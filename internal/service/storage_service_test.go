package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clusterize-backend/internal/domain"
	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/storage"
)

func newStorageServiceFixture(t *testing.T) (*mockProjectRepo, *mockBucketClient, *StorageService) {
	t.Helper()
	projects := &mockProjectRepo{}
	bucket := &mockBucketClient{}
	return projects, bucket, NewStorageService(projects, bucket, zap.NewNop())
}

func TestUploadFilesRejectsDuplicatesBeforeWriting(t *testing.T) {
	projects, bucket, svc := newStorageServiceFixture(t)
	projects.On("FindByID", mock.Anything, int64(5)).
		Return(&domain.Project{ID: 5, Owner: 9, Name: "p"}, nil)
	bucket.On("List", mock.Anything, "5").
		Return([]storage.Entry{{Name: "cat.png"}}, nil)

	_, err := svc.UploadFiles(context.Background(), 5, []UploadFile{
		{Name: "dog.png", ContentType: "image/png", Data: strings.NewReader("dog")},
		{Name: "cat.png", ContentType: "image/png", Data: strings.NewReader("cat")},
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), "cat.png")
	// No partial writes: the non-duplicate file is withheld too.
	bucket.AssertNotCalled(t, "Upload",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadFilesStoresAll(t *testing.T) {
	projects, bucket, svc := newStorageServiceFixture(t)
	projects.On("FindByID", mock.Anything, int64(5)).
		Return(&domain.Project{ID: 5, Owner: 9, Name: "p"}, nil)
	bucket.On("List", mock.Anything, "5").Return(nil, nil)
	bucket.On("Upload", mock.Anything, "5", "dog.png", mock.Anything, "image/png").Return(nil)
	bucket.On("Upload", mock.Anything, "5", "cat.png", mock.Anything, "image/png").Return(nil)

	stored, err := svc.UploadFiles(context.Background(), 5, []UploadFile{
		{Name: "dog.png", ContentType: "image/png", Data: strings.NewReader("dog")},
		{Name: "cat.png", ContentType: "image/png", Data: strings.NewReader("cat")},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"dog.png", "cat.png"}, stored)
}

func TestUploadFilesProjectNotFound(t *testing.T) {
	projects, _, svc := newStorageServiceFixture(t)
	projects.On("FindByID", mock.Anything, int64(5)).Return(nil, nil)

	_, err := svc.UploadFiles(context.Background(), 5, []UploadFile{
		{Name: "dog.png", ContentType: "image/png", Data: strings.NewReader("dog")},
	})

	assert.True(t, apperrors.IsNotFound(err))
}

func TestUploadFilesRequiresFiles(t *testing.T) {
	_, _, svc := newStorageServiceFixture(t)

	_, err := svc.UploadFiles(context.Background(), 5, nil)

	assert.True(t, apperrors.IsValidation(err))
}
