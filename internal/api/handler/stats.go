package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/battleship-server/internal/api/apierr"
	"github.com/mcoot/battleship-server/internal/api/response"
	"github.com/mcoot/battleship-server/internal/stats"
	"github.com/mcoot/battleship-server/internal/storage"
)

// StatsHandler serves server statistics and the health check
type StatsHandler struct {
	collector *stats.Collector
	storage   storage.Storage
	logger    *slog.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(collector *stats.Collector, store storage.Storage, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		collector: collector,
		storage:   store,
		logger:    logger.With(slog.String("component", "stats_handler")),
	}
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.collector.Collect(r.Context())
	if err != nil {
		// the in-memory counters are still worth returning
		h.logger.Warn("match count unavailable", slog.String("error", err.Error()))
	}
	response.JSON(w, http.StatusOK, snap)
}

// Health handles GET /api/v1/health
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.logger.Error("storage ping failed", slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewUnavailableError("storage unreachable"))
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "ok"})
}
