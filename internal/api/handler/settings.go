package handler

import (
	"net/http"
	"strings"

	"github.com/mcoot/hostguard/internal/api/apierr"
	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/model"
)

// SettingsHandler handles the moderation settings endpoints
type SettingsHandler struct {
	engine *engine.Engine
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(e *engine.Engine) *SettingsHandler {
	return &SettingsHandler{engine: e}
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := h.engine.Do(r.Context(), func() { settings = h.engine.Settings() }); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.SettingsFromModel(settings))
}

// Update handles PATCH /api/v1/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if req.ToggleKey != nil && strings.TrimSpace(*req.ToggleKey) == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("toggle_key must not be empty"))
		return
	}

	var settings model.Settings
	err := onEngine(r.Context(), h.engine, func() error {
		settings = applySettings(h.engine.Settings(), req)
		return h.engine.UpdateSettings(r.Context(), settings)
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.SettingsFromModel(settings))
}

func applySettings(s model.Settings, req request.UpdateSettingsRequest) model.Settings {
	if req.AutoBanInvalidRank != nil {
		s.AutoBanInvalidRank = *req.AutoBanInvalidRank
	}
	if req.AutoBanOffensiveName != nil {
		s.AutoBanOffensiveName = *req.AutoBanOffensiveName
	}
	if req.AutoBanFormattedName != nil {
		s.AutoBanFormattedName = *req.AutoBanFormattedName
	}
	if req.OffensiveNames != nil {
		s.OffensiveNames = *req.OffensiveNames
	}
	if req.ToggleKey != nil {
		s.ToggleKey = strings.TrimSpace(*req.ToggleKey)
	}
	return s
}
