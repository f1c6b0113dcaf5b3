package service

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/repository"
	"clusterize-backend/internal/storage"
)

// UploadFile is one file in an upload request.
type UploadFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// StorageService handles file uploads into project buckets.
type StorageService struct {
	projects repository.ProjectRepository
	bucket   storage.Client
	logger   *zap.Logger
}

// NewStorageService creates a StorageService.
func NewStorageService(projects repository.ProjectRepository, bucket storage.Client, logger *zap.Logger) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageService{projects: projects, bucket: bucket, logger: logger}
}

// UploadFiles stores the given files in the project's bucket and returns
// the stored paths. Names that already exist in the bucket fail the
// whole request before anything is written, so an upload is all-or-none
// with respect to duplicates.
func (s *StorageService) UploadFiles(ctx context.Context, projectID int64, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, apperrors.Validation("NO_FILES", "no files provided")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.NotFound("PROJECT_NOT_FOUND", "project not found")
	}

	bucketID := storage.BucketName(projectID)
	entries, err := s.bucket.List(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		existing[entry.Name] = struct{}{}
	}

	var duplicates []string
	for _, file := range files {
		if _, ok := existing[file.Name]; ok {
			duplicates = append(duplicates, file.Name)
		}
	}
	if len(duplicates) > 0 {
		return nil, apperrors.Conflict("DUPLICATE_FILES",
			"files already exist: "+strings.Join(duplicates, ", "))
	}

	stored := make([]string, 0, len(files))
	for _, file := range files {
		if err := s.bucket.Upload(ctx, bucketID, file.Name, file.Data, file.ContentType); err != nil {
			return stored, err
		}
		stored = append(stored, file.Name)
	}
	s.logger.Info("files uploaded",
		zap.Int64("project_id", projectID),
		zap.Int("count", len(stored)))
	return stored, nil
}
