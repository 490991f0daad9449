package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/matchmaking"
	"github.com/mcoot/battleship-server/internal/services/registry"
)

// ErrNotAvailable is returned when a player who is busy or in a game tries to queue
var ErrNotAvailable = errors.New("you must be available to join the queue")

// MatchmakingHandler handles queue messages. Every request is answered with
// QUEUE_STATUS.
type MatchmakingHandler struct {
	queue    *matchmaking.Queue
	registry *registry.Registry
	sessions *Sessions
	logger   *slog.Logger
}

// NewMatchmakingHandler creates a MatchmakingHandler
func NewMatchmakingHandler(queue *matchmaking.Queue, reg *registry.Registry, sessions *Sessions, logger *slog.Logger) *MatchmakingHandler {
	return &MatchmakingHandler{
		queue:    queue,
		registry: reg,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "matchmaking_handler")),
	}
}

func (h *MatchmakingHandler) CanHandle(t protocol.MessageType) bool {
	switch t {
	case protocol.TypeQueueJoin, protocol.TypeQueueLeave, protocol.TypeQueueStatusRequest:
		return true
	}
	return false
}

func (h *MatchmakingHandler) Handle(ctx context.Context, conn *network.Connection, msg protocol.Message) error {
	if !h.sessions.Authorize(conn, msg.Header) {
		return nil
	}
	userID := conn.UserID()

	switch msg.Header.Type {
	case protocol.TypeQueueJoin:
		var req protocol.QueueJoin
		if !decode(conn, msg, &req) {
			return nil
		}
		if err := h.join(ctx, userID, req.TimeLimit); err != nil {
			return h.reply(conn, userID, err.Error())
		}
		return h.reply(conn, userID, "joined queue")

	case protocol.TypeQueueLeave:
		if err := h.queue.LeaveQueue(userID); err != nil {
			return h.reply(conn, userID, err.Error())
		}
		return h.reply(conn, userID, "left queue")

	case protocol.TypeQueueStatusRequest:
		return h.reply(conn, userID, "")
	}
	return nil
}

func (h *MatchmakingHandler) join(ctx context.Context, userID model.UserID, timeLimit uint32) error {
	if h.queue.Contains(userID) {
		return model.ErrAlreadyQueued
	}
	if h.registry.GetStatus(userID) != model.StatusAvailable {
		return ErrNotAvailable
	}
	if err := h.queue.JoinQueue(ctx, userID, timeLimit); err != nil {
		h.logger.Warn("queue join failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
		if errors.Is(err, model.ErrAlreadyQueued) {
			return err
		}
		return errors.New(ErrorText(err))
	}
	return nil
}

// reply sends the caller's live queue status with message attached
func (h *MatchmakingHandler) reply(conn *network.Connection, userID model.UserID, message string) error {
	out := protocol.QueueStatus{Message: message}
	st, err := h.queue.GetQueueStatus(userID)
	if err == nil {
		out.InQueue = true
		out.Position = uint32(st.Position)
		out.TotalQueued = uint32(st.Total)
		out.WaitSeconds = uint32(st.Wait.Seconds())
		out.EloMin = st.EloMin
		out.EloMax = st.EloMax
	} else {
		out.TotalQueued = uint32(h.queue.Size())
		if out.Message == "" {
			out.Message = model.ErrNotQueued.Error()
		}
	}
	return conn.SendMessage(protocol.TypeQueueStatus, out)
}
