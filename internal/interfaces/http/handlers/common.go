// Package handlers contains the HTTP handlers. Handlers stay thin:
// decode and validate the request, call one service method, map the
// result or the typed error onto a response.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/pkg/api"
)

var validate = validator.New()

// decodeJSON decodes and validates a JSON request body. On failure it
// writes the 400 response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		api.Error(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps a typed service error onto an HTTP status.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Kind {
	case apperrors.KindValidation:
		api.Error(w, http.StatusBadRequest, appErr.Message)
	case apperrors.KindNotFound:
		api.Error(w, http.StatusNotFound, appErr.Message)
	case apperrors.KindConflict:
		api.Error(w, http.StatusConflict, appErr.Message)
	case apperrors.KindTimeout:
		api.Error(w, http.StatusGatewayTimeout, appErr.Message)
	default:
		logger.Error("internal error", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// userIDHeader reads the caller's user id from the X-User-ID header.
// Authentication proper is handled upstream; this shim carries the
// resolved identity.
func userIDHeader(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// splitQueryList parses a comma-separated query parameter into a list,
// dropping empty segments. An absent parameter yields nil.
func splitQueryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var values []string
	for _, segment := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
