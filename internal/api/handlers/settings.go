package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optionfolio/backend/internal/api/request"
	"github.com/optionfolio/backend/internal/api/response"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/validation"
)

// SettingHandler handles HTTP requests for configuration endpoints.
type SettingHandler struct {
	settingService *service.SettingService
}

// NewSettingHandler creates a new SettingHandler with the provided service dependency.
func NewSettingHandler(settingService *service.SettingService) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
	}
}

// Settings handles GET requests to retrieve all configuration values. Secret
// values are masked.
//
// Endpoint: GET /api/setting
// Response: 200 OK with array of Setting
// Error: 500 Internal Server Error if retrieval fails
func (h *SettingHandler) Settings(w http.ResponseWriter, _ *http.Request) {
	settings, err := h.settingService.GetAll()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSettings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, settings)
}

// UpdateSetting handles PUT requests to set a configuration value.
//
// Endpoint: PUT /api/setting/{key}
// Request Body: UpdateSettingRequest (value)
// Response: 204 No Content
// Error: 400 Bad Request if the key is unknown or the value is invalid
// Error: 500 Internal Server Error if the update fails
func (h *SettingHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	req, err := parseJSON[request.UpdateSettingRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateSetting(key, req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if err := h.settingService.Set(r.Context(), key, req.Value); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to update setting", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
