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
	"github.com/mcoot/hostguard/internal/services/autoban"
)

// BanHandler handles ban list endpoints
type BanHandler struct {
	engine *engine.Engine
	local  model.Identity
}

// NewBanHandler creates a new ban handler. local is the identity that can
// never be banned.
func NewBanHandler(e *engine.Engine, local model.Identity) *BanHandler {
	return &BanHandler{engine: e, local: local}
}

// List handles GET /api/v1/bans
func (h *BanHandler) List(w http.ResponseWriter, r *http.Request) {
	var records []model.BanRecord
	if err := h.engine.Do(r.Context(), func() { records = h.engine.Bans() }); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.BanListFromModel(records))
}

// Create handles POST /api/v1/bans
func (h *BanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.BanRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	identity := model.Identity(strings.TrimSpace(req.Identity))
	if err := h.validateTarget(identity); err != nil {
		apierr.WriteError(w, err)
		return
	}

	var record model.BanRecord
	err := onEngine(r.Context(), h.engine, func() error {
		if !h.engine.Ban(identity, req.DisplayName, req.Reason) {
			return model.ErrAlreadyBanned
		}
		record = findBan(h.engine.Bans(), identity)
		return nil
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.BanFromModel(record))
}

// Delete handles DELETE /api/v1/bans/{identity}
func (h *BanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := model.Identity(mux.Vars(r)["identity"])

	err := onEngine(r.Context(), h.engine, func() error {
		if !h.engine.Unban(identity) {
			return model.ErrNotBanned
		}
		return nil
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Toggle handles POST /api/v1/bans/{identity}/toggle. Without a display
// name in the body the connected participant's name is used.
func (h *BanHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	identity := model.Identity(mux.Vars(r)["identity"])
	if err := h.validateTarget(identity); err != nil {
		apierr.WriteError(w, err)
		return
	}

	var req request.ToggleRequest
	if err := decodeOptional(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	var banned bool
	err := h.engine.Do(r.Context(), func() {
		banned = h.engine.Toggle(identity, displayNameFor(h.engine, identity, req.DisplayName))
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.Toggle{Identity: string(identity), Banned: banned})
}

// Export handles GET /api/v1/bans/export
func (h *BanHandler) Export(w http.ResponseWriter, r *http.Request) {
	var export response.Export
	err := h.engine.Do(r.Context(), func() {
		export.Blob = h.engine.ExportBans()
		export.Count = len(h.engine.Bans())
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, export)
}

// Import handles POST /api/v1/bans/import. The imported list replaces the
// current one.
func (h *BanHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req request.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	var count int
	err := onEngine(r.Context(), h.engine, func() error {
		var importErr error
		count, importErr = h.engine.ImportBans(r.Context(), req.Blob)
		return importErr
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.Import{Count: count})
}

// ScanFormatted handles POST /api/v1/bans/scan-formatted
func (h *BanHandler) ScanFormatted(w http.ResponseWriter, r *http.Request) {
	var findings []autoban.Finding
	if err := h.engine.Do(r.Context(), func() { findings = h.engine.ScanFormattedNames() }); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.ScanFromModel(findings))
}

func (h *BanHandler) validateTarget(identity model.Identity) error {
	if identity == "" {
		return model.ErrInvalidIdentity
	}
	if identity == h.local {
		return model.ErrAuthorityTarget
	}
	return nil
}

func findBan(records []model.BanRecord, identity model.Identity) model.BanRecord {
	for _, rec := range records {
		if rec.Identity == identity {
			return rec
		}
	}
	return model.BanRecord{Identity: identity}
}

// displayNameFor prefers an explicit name, then the connected
// participant's. Must run on the engine goroutine.
func displayNameFor(e *engine.Engine, identity model.Identity, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p, ok := e.Member(identity); ok {
		return p.DisplayName
	}
	return ""
}
