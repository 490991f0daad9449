package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/battleship-server/internal/api/apierr"
	"github.com/mcoot/battleship-server/internal/api/response"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/storage"
)

// MatchHandler handles match lookups
type MatchHandler struct {
	storage storage.Storage
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(store storage.Storage) *MatchHandler {
	return &MatchHandler{storage: store}
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid match id"))
		return
	}

	m, err := h.storage.GetMatch(r.Context(), model.MatchID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}
