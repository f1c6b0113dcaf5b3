package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"clusterize-backend/internal/service"
	"clusterize-backend/pkg/api"
)

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	projects *service.ProjectService
	objects  *service.ObjectService
	logger   *zap.Logger
}

// NewProjectHandler creates a project handler.
func NewProjectHandler(projects *service.ProjectService, objects *service.ObjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, objects: objects, logger: logger}
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type updateProjectRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// ListProjects handles GET /api/v1/projects.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDHeader(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "missing or invalid X-User-ID header")
		return
	}

	projects, cached, err := h.projects.GetUserProjects(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
		"cached":   cached,
	})
}

// GetProject handles GET /api/v1/projects/{projectID}.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, cached, err := h.projects.GetProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"project": project,
		"cached":  cached,
	})
}

// GetProjectStatistics handles GET /api/v1/projects/{projectID}/statistics.
func (h *ProjectHandler) GetProjectStatistics(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	stats, err := h.projects.GetProjectWithStatistics(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

// CreateProject handles POST /api/v1/projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDHeader(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "missing or invalid X-User-ID header")
		return
	}

	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.projects.CreateProject(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusCreated, project)
}

// UpdateProject handles PUT /api/v1/projects/{projectID}.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req updateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.projects.UpdateProject(r.Context(), projectID, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, project)
}

// DeleteProject handles DELETE /api/v1/projects/{projectID}.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := h.projects.DeleteProject(r.Context(), projectID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ResetProject handles POST /api/v1/projects/{projectID}/reset.
func (h *ProjectHandler) ResetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	moved, err := h.objects.ResetProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"status": "reset",
		"moved":  moved,
	})
}
