package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clusterize-backend/internal/service"
	"clusterize-backend/pkg/api"
)

// UserHandler handles account endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type ensureUserRequest struct {
	AuthID string `json:"auth_id" validate:"required,max=200"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// EnsureUser handles POST /api/v1/users: find-or-create by external
// identity.
func (h *UserHandler) EnsureUser(w http.ResponseWriter, r *http.Request) {
	var req ensureUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.EnsureUser(r.Context(), req.AuthID, req.Email)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/users/{authID}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	authID := chi.URLParam(r, "authID")
	if authID == "" {
		api.Error(w, http.StatusBadRequest, "missing auth id")
		return
	}

	if err := h.users.DeleteUser(r.Context(), authID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
