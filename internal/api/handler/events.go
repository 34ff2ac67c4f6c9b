package handler

import (
	"net/http"

	"github.com/mcoot/hostguard/internal/api/response"
	"github.com/mcoot/hostguard/internal/api/sse"
	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/session"
)

// StatusHandler handles health and the event stream
type StatusHandler struct {
	state  session.State
	engine *engine.Engine
	hub    *sse.Hub
}

// NewStatusHandler creates a new status handler. hub may be nil, which
// disables the event stream.
func NewStatusHandler(state session.State, e *engine.Engine, hub *sse.Hub) *StatusHandler {
	return &StatusHandler{state: state, engine: e, hub: hub}
}

// Health handles GET /api/v1/health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := response.Health{
		Status:      "ok",
		InSession:   h.state.InSession(),
		IsAuthority: h.state.IsAuthority(),
		Phase:       string(h.state.Phase()),
	}
	response.OK(w, health)
}

// Events handles GET /api/v1/events
func (h *StatusHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.NotFound(w, r)
		return
	}
	sse.ServeSSE(w, r, h.hub)
}
