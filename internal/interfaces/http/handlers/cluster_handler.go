package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clusterize-backend/internal/service"
	"clusterize-backend/pkg/api"
)

// ClusterHandler handles cluster endpoints.
type ClusterHandler struct {
	clusters *service.ClusterService
	logger   *zap.Logger
}

// NewClusterHandler creates a cluster handler.
func NewClusterHandler(clusters *service.ClusterService, logger *zap.Logger) *ClusterHandler {
	return &ClusterHandler{clusters: clusters, logger: logger}
}

type createClusterRequest struct {
	Label     string `json:"label" validate:"required,max=120"`
	LabelName string `json:"label_name" validate:"max=120"`
}

type updateClusterRequest struct {
	LabelName string `json:"label_name" validate:"required,max=120"`
}

type uploadManifestRequest struct {
	Manifest map[string][]string `json:"manifest" validate:"required,min=1"`
}

// ListClusters handles GET /api/v1/projects/{projectID}/clusters.
func (h *ClusterHandler) ListClusters(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	clusters, count, err := h.clusters.ListClusters(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"clusters": clusters,
		"count":    count,
	})
}

// ListClusterObjects handles GET /api/v1/projects/{projectID}/clusters/{label}/objects.
func (h *ClusterHandler) ListClusterObjects(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	label := chi.URLParam(r, "label")

	objects, count, err := h.clusters.ListClusterObjects(r.Context(), projectID, label)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"objects": objects,
		"count":   count,
	})
}

// CreateCluster handles POST /api/v1/projects/{projectID}/clusters.
func (h *ClusterHandler) CreateCluster(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req createClusterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cluster, err := h.clusters.CreateCluster(r.Context(), projectID, req.Label, req.LabelName)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusCreated, cluster)
}

// CreateFromUpload handles POST /api/v1/projects/{projectID}/clusters/upload.
func (h *ClusterHandler) CreateFromUpload(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req uploadManifestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	clusters, err := h.clusters.CreateClustersFromUpload(r.Context(), projectID, req.Manifest)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusCreated, map[string]interface{}{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// UpdateCluster handles PUT /api/v1/projects/{projectID}/clusters/{label}.
func (h *ClusterHandler) UpdateCluster(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	label := chi.URLParam(r, "label")

	var req updateClusterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cluster, err := h.clusters.UpdateCluster(r.Context(), projectID, label, req.LabelName)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, cluster)
}

// ResetCluster handles POST /api/v1/projects/{projectID}/clusters/{label}/reset.
func (h *ClusterHandler) ResetCluster(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	label := chi.URLParam(r, "label")

	moved, err := h.clusters.ResetCluster(r.Context(), projectID, label)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"status": "reset",
		"moved":  moved,
	})
}
