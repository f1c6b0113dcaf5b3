// Package storage wraps the blob store: bucket lifecycle, file uploads
// and signed-URL generation, including the concurrent batch generator
// used by object listings.
package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	apperrors "clusterize-backend/internal/errors"
)

// Entry is a file listed from a bucket.
type Entry struct {
	Name string
}

// URLSigner mints time-limited signed URLs. The batch generator depends
// on this narrow interface only.
type URLSigner interface {
	CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
}

// Client is the blob-store contract the services depend on. Buckets are
// named after the owning project's id.
type Client interface {
	URLSigner
	List(ctx context.Context, bucket string) ([]Entry, error)
	Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error
	CreateBucket(ctx context.Context, bucket string) error
	EmptyBucket(ctx context.Context, bucket string) error
	DeleteBucket(ctx context.Context, bucket string) error
}

// BucketName returns the bucket id owned by a project.
func BucketName(projectID int64) string {
	return strconv.FormatInt(projectID, 10)
}

// listPageSize bounds a single bucket listing.
const listPageSize = 1000

// SupabaseClient implements Client over the Supabase storage API.
// The underlying SDK carries the context inside its own HTTP client,
// so the ctx parameters bound the callers, not the transport.
type SupabaseClient struct {
	storage          *storage_go.Client
	allowedMimeTypes []string
	maxUploadBytes   int64
}

// NewSupabaseClient creates a storage client. New buckets are created
// private, restricted to the given mime types and upload size.
func NewSupabaseClient(storage *storage_go.Client, allowedMimeTypes []string, maxUploadBytes int64) *SupabaseClient {
	return &SupabaseClient{
		storage:          storage,
		allowedMimeTypes: allowedMimeTypes,
		maxUploadBytes:   maxUploadBytes,
	}
}

var _ Client = (*SupabaseClient)(nil)

// List returns the entries stored in a bucket.
func (c *SupabaseClient) List(ctx context.Context, bucket string) ([]Entry, error) {
	files, err := c.storage.ListFiles(bucket, "", storage_go.FileSearchOptions{
		Limit:  listPageSize,
		Offset: 0,
	})
	if err != nil {
		return nil, apperrors.Internal("STORAGE_LIST_FAILED", "failed to list bucket").
			WithOperation("List").WithResource(bucket).WithCause(err)
	}
	entries := make([]Entry, len(files))
	for i, f := range files {
		entries[i] = Entry{Name: f.Name}
	}
	return entries, nil
}

// Upload stores a file in a bucket under the given path.
func (c *SupabaseClient) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error {
	_, err := c.storage.UploadFile(bucket, path, data, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return apperrors.Internal("STORAGE_UPLOAD_FAILED", "failed to upload file").
			WithOperation("Upload").WithResource(bucket + "/" + path).WithCause(err)
	}
	return nil
}

// CreateSignedURL mints a signed URL for a stored file.
func (c *SupabaseClient) CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	resp, err := c.storage.CreateSignedUrl(bucket, path, int(ttl.Seconds()))
	if err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}

// CreateBucket creates a private bucket for a project.
func (c *SupabaseClient) CreateBucket(ctx context.Context, bucket string) error {
	public := false
	_, err := c.storage.CreateBucket(bucket, storage_go.BucketOptions{
		Public:           public,
		AllowedMimeTypes: c.allowedMimeTypes,
		FileSizeLimit:    fmt.Sprintf("%d", c.maxUploadBytes),
	})
	if err != nil {
		return apperrors.Internal("BUCKET_CREATE_FAILED", "failed to create bucket").
			WithOperation("CreateBucket").WithResource(bucket).WithCause(err)
	}
	return nil
}

// EmptyBucket removes every file from a bucket.
func (c *SupabaseClient) EmptyBucket(ctx context.Context, bucket string) error {
	if _, err := c.storage.EmptyBucket(bucket); err != nil {
		return apperrors.Internal("BUCKET_EMPTY_FAILED", "failed to empty bucket").
			WithOperation("EmptyBucket").WithResource(bucket).WithCause(err)
	}
	return nil
}

// DeleteBucket deletes a bucket. The bucket must be empty first.
func (c *SupabaseClient) DeleteBucket(ctx context.Context, bucket string) error {
	if _, err := c.storage.DeleteBucket(bucket); err != nil {
		return apperrors.Internal("BUCKET_DELETE_FAILED", "failed to delete bucket").
			WithOperation("DeleteBucket").WithResource(bucket).WithCause(err)
	}
	return nil
}
