package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"clusterize-backend/internal/domain"
	"clusterize-backend/internal/service"
	"clusterize-backend/pkg/api"
)

// ObjectHandler handles object listing and mutation endpoints.
type ObjectHandler struct {
	objects *service.ObjectService
	logger  *zap.Logger
}

// NewObjectHandler creates an object handler.
func NewObjectHandler(objects *service.ObjectService, logger *zap.Logger) *ObjectHandler {
	return &ObjectHandler{objects: objects, logger: logger}
}

type updateObjectRequest struct {
	// Tags nil means "leave tags alone"; an empty list clears them.
	Tags       *[]string `json:"tags"`
	NewCluster string    `json:"new_cluster" validate:"max=120"`
}

type batchUpdateRequest struct {
	ObjectIDs  []int64  `json:"object_ids" validate:"required,min=1"`
	AddTags    []string `json:"add_tags"`
	NewCluster string   `json:"new_cluster" validate:"max=120"`
}

// ListObjects handles GET /api/v1/projects/{projectID}/objects. Filters
// come from the query string: clusters, tags and label_names as
// comma-separated lists, name as a single value, relocated as a flag.
func (h *ObjectHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	filter := domain.FilterSet{
		Clusters:      splitQueryList(r, "clusters"),
		Tags:          splitQueryList(r, "tags"),
		LabelNames:    splitQueryList(r, "label_names"),
		Name:          r.URL.Query().Get("name"),
		RelocatedOnly: r.URL.Query().Get("relocated") == "true" || r.URL.Query().Get("relocated") == "1",
	}

	listing, err := h.objects.ListObjects(r.Context(), projectID, filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, listing)
}

// UpdateObject handles PUT /api/v1/projects/{projectID}/objects/{objectID}.
func (h *ObjectHandler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	objectID, err := pathID(r, "objectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid object id")
		return
	}

	var req updateObjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var tags []string
	if req.Tags != nil {
		tags = *req.Tags
		if tags == nil {
			tags = []string{}
		}
	}

	object, err := h.objects.UpdateObject(r.Context(), projectID, objectID, tags, req.NewCluster)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, object)
}

// BatchUpdateObjects handles PUT /api/v1/projects/{projectID}/objects/batch.
func (h *ObjectHandler) BatchUpdateObjects(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req batchUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.objects.BatchUpdateObjects(r.Context(), projectID, req.ObjectIDs, req.AddTags, req.NewCluster)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"objects": updated,
		"count":   len(updated),
	})
}
