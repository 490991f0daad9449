package handler

import (
	"context"
	"log/slog"

	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/challenge"
)

// ChallengeHandler routes challenge messages to the coordinator. The
// coordinator sends CHALLENGE_RESULT replies itself, so rule violations are
// not handler errors.
type ChallengeHandler struct {
	challenges *challenge.Coordinator
	sessions   *Sessions
	logger     *slog.Logger
}

// NewChallengeHandler creates a ChallengeHandler
func NewChallengeHandler(challenges *challenge.Coordinator, sessions *Sessions, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		challenges: challenges,
		sessions:   sessions,
		logger:     logger.With(slog.String("component", "challenge_handler")),
	}
}

func (h *ChallengeHandler) CanHandle(t protocol.MessageType) bool {
	switch t {
	case protocol.TypeChallengeSend, protocol.TypeChallengeResponse, protocol.TypeChallengeCancel:
		return true
	}
	return false
}

func (h *ChallengeHandler) Handle(ctx context.Context, conn *network.Connection, msg protocol.Message) error {
	if !h.sessions.Authorize(conn, msg.Header) {
		return nil
	}
	userID := conn.UserID()

	switch msg.Header.Type {
	case protocol.TypeChallengeSend:
		var req protocol.ChallengeSend
		if !decode(conn, msg, &req) {
			return nil
		}
		_, _ = h.challenges.SendChallenge(ctx, userID, req)

	case protocol.TypeChallengeResponse:
		var req protocol.ChallengeResponse
		if !decode(conn, msg, &req) {
			return nil
		}
		_ = h.challenges.RespondToChallenge(ctx, userID, req)

	case protocol.TypeChallengeCancel:
		var req protocol.ChallengeCancel
		if !decode(conn, msg, &req) {
			return nil
		}
		_ = h.challenges.CancelOwnChallenge(ctx, userID, req.ChallengeID)
	}
	return nil
}
