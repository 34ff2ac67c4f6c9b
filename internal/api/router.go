package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/hostguard/internal/api/handler"
	"github.com/mcoot/hostguard/internal/api/middleware"
	"github.com/mcoot/hostguard/internal/api/sse"
	"github.com/mcoot/hostguard/internal/engine"
	"github.com/mcoot/hostguard/internal/services/auth"
	"github.com/mcoot/hostguard/internal/session/sim"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Auth    *auth.Service
	Engine  *engine.Engine
	Session *sim.Session
	Hub     *sse.Hub
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	local := cfg.Session.LocalIdentity()

	// Create handlers
	statusHandler := handler.NewStatusHandler(cfg.Session, cfg.Engine, cfg.Hub)
	banHandler := handler.NewBanHandler(cfg.Engine, local)
	moderationHandler := handler.NewModerationHandler(cfg.Engine)
	settingsHandler := handler.NewSettingsHandler(cfg.Engine)
	sessionHandler := handler.NewSessionHandler(cfg.Session, cfg.Engine)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Tracing())
	api.Use(middleware.Logging(cfg.Logger))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", statusHandler.Health).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(cfg.Auth, cfg.Logger))

	// Ban list
	protected.HandleFunc("/bans", banHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/bans", banHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/bans/export", banHandler.Export).Methods(http.MethodGet)
	protected.HandleFunc("/bans/import", banHandler.Import).Methods(http.MethodPost)
	protected.HandleFunc("/bans/scan-formatted", banHandler.ScanFormatted).Methods(http.MethodPost)
	protected.HandleFunc("/bans/{identity}", banHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/bans/{identity}/toggle", banHandler.Toggle).Methods(http.MethodPost)

	// Roster and enforcement
	protected.HandleFunc("/participants", moderationHandler.Participants).Methods(http.MethodGet)
	protected.HandleFunc("/participants/{identity}/kick", moderationHandler.Kick).Methods(http.MethodPost)
	protected.HandleFunc("/kicks", moderationHandler.Kicks).Methods(http.MethodGet)

	// Settings
	protected.HandleFunc("/settings", settingsHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/settings", settingsHandler.Update).Methods(http.MethodPatch)

	// Event stream
	protected.HandleFunc("/events", statusHandler.Events).Methods(http.MethodGet)

	// Simulated session control
	protected.HandleFunc("/session", sessionHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/session", sessionHandler.Host).Methods(http.MethodPost)
	protected.HandleFunc("/session", sessionHandler.Close).Methods(http.MethodDelete)
	protected.HandleFunc("/session/members", sessionHandler.Join).Methods(http.MethodPost)
	protected.HandleFunc("/session/members/{identity}", sessionHandler.Leave).Methods(http.MethodDelete)
	protected.HandleFunc("/session/match", sessionHandler.StartMatch).Methods(http.MethodPost)
	protected.HandleFunc("/session/match", sessionHandler.EndMatch).Methods(http.MethodDelete)
	protected.HandleFunc("/session/authority", sessionHandler.SetAuthority).Methods(http.MethodPut)

	return r
}
