package handler

import (
	"errors"
	"log/slog"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/auth"
	"github.com/mcoot/battleship-server/internal/services/challenge"
	"github.com/mcoot/battleship-server/internal/services/matchmaking"
	"github.com/mcoot/battleship-server/internal/services/registry"
)

// Sessions tears down everything a logged-in connection owns
type Sessions struct {
	auth       *auth.Service
	registry   *registry.Registry
	challenges *challenge.Coordinator
	queue      *matchmaking.Queue
	logger     *slog.Logger
}

// NewSessions creates a Sessions
func NewSessions(authSvc *auth.Service, reg *registry.Registry, challenges *challenge.Coordinator, queue *matchmaking.Queue, logger *slog.Logger) *Sessions {
	return &Sessions{
		auth:       authSvc,
		registry:   reg,
		challenges: challenges,
		queue:      queue,
		logger:     logger.With(slog.String("component", "sessions")),
	}
}

var errTokenMismatch = errors.New("session token does not match connection")

// Authorize reports whether conn may make the request described by h. The
// connection must be logged in with a session the auth service still
// accepts, and a token sent in the header must be that session's. Anything
// else is answered with NOT_AUTHENTICATED. An expired session is logged out
// so the player has to log in again.
func (s *Sessions) Authorize(conn *network.Connection, h protocol.Header) bool {
	err := s.validate(conn, h.Token())
	if err == nil {
		return true
	}
	s.logger.Debug("request not authorized",
		slog.String("conn_id", conn.ID().String()),
		slog.String("type", h.Type.String()),
		slog.String("reason", err.Error()))
	if errors.Is(err, auth.ErrInvalidSession) {
		s.Logout(conn)
	}
	_ = SendError(conn, model.ErrNotAuthenticated)
	return false
}

func (s *Sessions) validate(conn *network.Connection, headerToken string) error {
	if !conn.IsAuthenticated() {
		return model.ErrNotAuthenticated
	}
	token := conn.SessionToken()
	if headerToken != "" && headerToken != token {
		return errTokenMismatch
	}
	session, err := s.auth.ValidateSession(token)
	if err != nil {
		return err
	}
	if session.User.ID != conn.UserID() {
		return errTokenMismatch
	}
	return nil
}

// Disconnected cleans up after conn. Nothing happens unless conn is still
// the registered connection for its user, so an old socket closing after a
// newer login leaves the new session intact.
func (s *Sessions) Disconnected(conn *network.Connection) {
	if !conn.IsAuthenticated() {
		return
	}
	s.release(conn.UserID(), conn)
}

// Logout ends conn's session but keeps the socket open
func (s *Sessions) Logout(conn *network.Connection) {
	s.release(conn.UserID(), conn)
	conn.Deauthenticate()
}

// Replace evicts whatever connection userID was using before a new login
func (s *Sessions) Replace(userID model.UserID, next *network.Connection) {
	prev := s.registry.GetConnection(userID)
	if prev == nil || prev == next {
		return
	}
	s.logger.Info("replacing session",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("old_conn_id", prev.ID().String()),
		slog.String("new_conn_id", next.ID().String()))
	s.release(userID, prev)
	prev.Disconnect()
}

func (s *Sessions) release(userID model.UserID, conn *network.Connection) {
	if !s.registry.RemovePlayerConnection(userID, conn) {
		return
	}
	queued := s.queue.RemovePlayer(userID)
	challenges := s.challenges.RemovePlayerChallenges(userID)
	s.auth.InvalidateSession(conn.SessionToken())

	s.logger.Info("session released",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("conn_id", conn.ID().String()),
		slog.Bool("was_queued", queued),
		slog.Int("challenges_dropped", challenges))
}
