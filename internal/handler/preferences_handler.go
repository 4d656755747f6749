package handler

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
	"smart-reader/internal/service"
	"smart-reader/pkg/response"
)

type PreferencesHandler struct {
	preferences *service.PreferencesService
	logger      *log.Logger
}

func NewPreferencesHandler(preferences *service.PreferencesService, logger *log.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		preferences: preferences,
		logger:      logger,
	}
}

func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.preferences.Get(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, prefs)
}

func (h *PreferencesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	prefs, err := h.preferences.Update(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, prefs)
}
