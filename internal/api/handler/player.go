// Package handler implements the admin API endpoints
package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/battleship-server/internal/api/apierr"
	"github.com/mcoot/battleship-server/internal/api/response"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/services/registry"
	"github.com/mcoot/battleship-server/internal/storage"
)

// PlayerHandler handles player lookups
type PlayerHandler struct {
	registry *registry.Registry
	storage  storage.Storage
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(reg *registry.Registry, store storage.Storage) *PlayerHandler {
	return &PlayerHandler{
		registry: reg,
		storage:  store,
	}
}

// List handles GET /api/v1/players
// Optional ?status=available|busy|in_game filters the result.
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	var want *model.PlayerStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := parseStatus(raw)
		if !ok {
			apierr.WriteError(w, apierr.NewInvalidRequestError("status must be available, busy or in_game"))
			return
		}
		want = &status
	}

	online := h.registry.ListOnline()
	sort.Slice(online, func(i, j int) bool { return online[i].UserID < online[j].UserID })

	players := make([]response.Player, 0, len(online))
	for _, p := range online {
		if want != nil && p.Status != *want {
			continue
		}
		players = append(players, response.PlayerFromInfo(p))
	}

	response.JSON(w, http.StatusOK, response.PlayerList{Players: players, Count: len(players)})
}

// Get handles GET /api/v1/players/{id}
// Players who are not online are looked up in storage and reported offline.
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid player id"))
		return
	}

	if info, ok := h.registry.GetInfo(model.UserID(id)); ok {
		response.JSON(w, http.StatusOK, response.PlayerFromInfo(info))
		return
	}

	user, err := h.storage.GetUserByID(r.Context(), model.UserID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromUser(user))
}

func parseStatus(s string) (model.PlayerStatus, bool) {
	for _, status := range []model.PlayerStatus{model.StatusAvailable, model.StatusBusy, model.StatusInGame} {
		if status.String() == s {
			return status, true
		}
	}
	return 0, false
}
