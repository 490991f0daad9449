package handler

import (
	"context"
	"log/slog"

	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/registry"
)

// PlayerListHandler answers PLAYER_LIST_REQUEST with the online players,
// lowest user ID first. The list is cut at protocol.MaxPlayerListEntries so
// the reply always fits a client's default message limit.
type PlayerListHandler struct {
	registry *registry.Registry
	sessions *Sessions
	logger   *slog.Logger
}

// NewPlayerListHandler creates a PlayerListHandler
func NewPlayerListHandler(reg *registry.Registry, sessions *Sessions, logger *slog.Logger) *PlayerListHandler {
	return &PlayerListHandler{
		registry: reg,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "player_list_handler")),
	}
}

func (h *PlayerListHandler) CanHandle(t protocol.MessageType) bool {
	return t == protocol.TypePlayerListRequest
}

func (h *PlayerListHandler) Handle(ctx context.Context, conn *network.Connection, msg protocol.Message) error {
	if !h.sessions.Authorize(conn, msg.Header) {
		return nil
	}

	online := h.registry.ListOnline()
	if len(online) > protocol.MaxPlayerListEntries {
		h.logger.Warn("player list truncated",
			slog.Int("online", len(online)),
			slog.Int("sent", protocol.MaxPlayerListEntries))
		online = online[:protocol.MaxPlayerListEntries]
	}
	list := protocol.PlayerList{Players: make([]protocol.PlayerInfo, 0, len(online))}
	for _, info := range online {
		list.Players = append(list.Players, registry.ToWire(info))
	}
	return conn.SendMessage(protocol.TypePlayerList, list)
}
