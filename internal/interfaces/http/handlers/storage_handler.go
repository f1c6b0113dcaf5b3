package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"clusterize-backend/internal/service"
	"clusterize-backend/pkg/api"
)

// maxUploadMemory bounds how much of a multipart body is buffered in
// memory before spilling to disk.
const maxUploadMemory = 32 << 20

// StorageHandler handles file uploads into project buckets.
type StorageHandler struct {
	storage *service.StorageService
	logger  *zap.Logger
}

// NewStorageHandler creates a storage handler.
func NewStorageHandler(storage *service.StorageService, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{storage: storage, logger: logger}
}

// UploadFiles handles POST /api/v1/projects/{projectID}/upload with a
// multipart form carrying one or more "files" parts.
func (h *StorageHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		api.Error(w, http.StatusBadRequest, "no files provided")
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			api.Error(w, http.StatusBadRequest, "unreadable file: "+header.Filename)
			return
		}
		defer part.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		files = append(files, service.UploadFile{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        part,
		})
	}

	stored, err := h.storage.UploadFiles(r.Context(), projectID, files)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusCreated, map[string]interface{}{
		"uploaded": stored,
		"count":    len(stored),
	})
}
