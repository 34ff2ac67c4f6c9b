package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/hostguard/internal/api/apierr"
	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/session/sim"
)

// SessionHandler drives the simulated session
type SessionHandler struct {
	session *sim.Session
	engine  *engine.Engine
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session *sim.Session, e *engine.Engine) *SessionHandler {
	return &SessionHandler{session: session, engine: e}
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, response.SessionFromStatus(h.session.Status()))
}

// Host handles POST /api/v1/session
func (h *SessionHandler) Host(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Host(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.Created(w, response.SessionFromStatus(h.session.Status()))
}

// Close handles DELETE /api/v1/session
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Close(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.NoContent(w)
}

// Join handles POST /api/v1/session/members
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("display_name is required"))
		return
	}

	identity := model.Identity(strings.TrimSpace(req.Identity))
	if err := h.session.Join(identity, req.DisplayName, req.Rank, req.IgnoresKicks); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.Created(w, response.SessionFromStatus(h.session.Status()))
}

// Leave handles DELETE /api/v1/session/members/{identity}
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity := model.Identity(mux.Vars(r)["identity"])
	if err := h.session.Leave(identity); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.NoContent(w)
}

// StartMatch handles POST /api/v1/session/match
func (h *SessionHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.session.StartMatch(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.OK(w, response.SessionFromStatus(h.session.Status()))
}

// EndMatch handles DELETE /api/v1/session/match
func (h *SessionHandler) EndMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.session.EndMatch(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.OK(w, response.SessionFromStatus(h.session.Status()))
}

// SetAuthority handles PUT /api/v1/session/authority
func (h *SessionHandler) SetAuthority(w http.ResponseWriter, r *http.Request) {
	var req request.AuthorityRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if err := h.session.SetAuthority(req.IsAuthority); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.sync(r)
	response.OK(w, response.SessionFromStatus(h.session.Status()))
}

// sync runs a monitor pass so the engine reacts to the change before the
// response is written. The session change itself has already happened; if
// the engine is unavailable it catches up on its next poll.
func (h *SessionHandler) sync(r *http.Request) {
	_ = h.engine.Do(r.Context(), h.engine.Poll)
}
