// Package api serves the read-only admin HTTP API: health, server stats,
// player and match lookups and a live event stream.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/battleship-server/internal/api/handler"
	"github.com/mcoot/battleship-server/internal/api/middleware"
	"github.com/mcoot/battleship-server/internal/api/sse"
	"github.com/mcoot/battleship-server/internal/services/registry"
	"github.com/mcoot/battleship-server/internal/stats"
	"github.com/mcoot/battleship-server/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *registry.Registry
	Storage  storage.Storage
	Stats    *stats.Collector
	// Feed, when set, is served as a server-sent event stream on /events
	Feed     *sse.Hub
	// Token, when set, is required as a bearer token on everything but /health
	Token    string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.Registry, cfg.Storage)
	matchHandler := handler.NewMatchHandler(cfg.Storage)
	statsHandler := handler.NewStatsHandler(cfg.Stats, cfg.Storage, cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", statsHandler.Health).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.AdminToken(cfg.Token))
	protected.HandleFunc("/stats", statsHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/players/{id:[0-9]+}", playerHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/matches/{id:[0-9]+}", matchHandler.Get).Methods(http.MethodGet)
	if cfg.Feed != nil {
		protected.HandleFunc("/events", sse.Handler(cfg.Feed)).Methods(http.MethodGet)
	}

	return r
}
