package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/hostguard/internal/api/apierr"
	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/model"
)

// ModerationHandler handles roster and enforcement endpoints
type ModerationHandler struct {
	engine *engine.Engine
}

// NewModerationHandler creates a new moderation handler
func NewModerationHandler(e *engine.Engine) *ModerationHandler {
	return &ModerationHandler{engine: e}
}

// Participants handles GET /api/v1/participants
func (h *ModerationHandler) Participants(w http.ResponseWriter, r *http.Request) {
	var resp response.Participants
	err := h.engine.Do(r.Context(), func() {
		resp.Participants = response.ParticipantsFromModel(h.engine.Participants())
		resp.BannedPresent = response.ParticipantsFromModel(h.engine.BannedPresent())
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, resp)
}

// Kick handles POST /api/v1/participants/{identity}/kick
func (h *ModerationHandler) Kick(w http.ResponseWriter, r *http.Request) {
	identity := model.Identity(mux.Vars(r)["identity"])

	var req request.KickRequest
	if err := decodeOptional(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	err := onEngine(r.Context(), h.engine, func() error {
		return h.engine.Kick(identity, displayNameFor(h.engine, identity, req.DisplayName))
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Kicks handles GET /api/v1/kicks
func (h *ModerationHandler) Kicks(w http.ResponseWriter, r *http.Request) {
	var resp response.Kicks
	err := h.engine.Do(r.Context(), func() {
		resp = response.KicksFromModel(h.engine.KickStatuses(), h.engine.Softlocked())
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, resp)
}
