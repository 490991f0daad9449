package handler

import (
	"context"
	"log/slog"

	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/auth"
	"github.com/mcoot/battleship-server/internal/services/registry"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	auth     *auth.Service
	registry *registry.Registry
	sessions *Sessions
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(authSvc *auth.Service, reg *registry.Registry, sessions *Sessions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     authSvc,
		registry: reg,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

func (h *AuthHandler) CanHandle(t protocol.MessageType) bool {
	switch t {
	case protocol.TypeAuthRegister, protocol.TypeAuthLogin, protocol.TypeAuthLogout:
		return true
	}
	return false
}

func (h *AuthHandler) Handle(ctx context.Context, conn *network.Connection, msg protocol.Message) error {
	switch msg.Header.Type {
	case protocol.TypeAuthRegister:
		var req protocol.AuthRegister
		if !decode(conn, msg, &req) {
			return nil
		}
		session, err := h.auth.Register(ctx, req.Username, req.Password, req.DisplayName)
		return h.complete(conn, session, err, "registration successful")

	case protocol.TypeAuthLogin:
		var req protocol.AuthLogin
		if !decode(conn, msg, &req) {
			return nil
		}
		session, err := h.auth.Login(ctx, req.Username, req.Password)
		return h.complete(conn, session, err, "login successful")

	case protocol.TypeAuthLogout:
		if !h.sessions.Authorize(conn, msg.Header) {
			return nil
		}
		userID := conn.UserID()
		h.sessions.Logout(conn)
		h.logger.Info("player logged out", slog.Uint64("user_id", uint64(userID)))
		return conn.SendMessage(protocol.TypeAuthResponse, protocol.AuthResponse{
			Success: true,
			UserID:  uint64(userID),
			Message: "logged out",
		})
	}
	return nil
}

// complete answers a register or login attempt and, on success, marks the
// connection authenticated and puts the player online.
func (h *AuthHandler) complete(conn *network.Connection, session *auth.Session, err error, okMessage string) error {
	if err != nil {
		h.logger.Info("authentication failed",
			slog.String("conn_id", conn.ID().String()),
			slog.String("error", err.Error()))
		return conn.SendMessage(protocol.TypeAuthResponse, protocol.AuthResponse{
			Success: false,
			Message: ErrorText(err),
		})
	}

	user := session.User
	if conn.IsAuthenticated() {
		h.sessions.Logout(conn)
	}
	h.sessions.Replace(user.ID, conn)
	conn.Authenticate(user.ID, session.Token)

	resp := protocol.AuthResponse{
		Success:      true,
		UserID:       uint64(user.ID),
		EloRating:    user.EloRating,
		SessionToken: session.Token,
		DisplayName:  user.DisplayName,
		Message:      okMessage,
	}
	if err := conn.SendMessage(protocol.TypeAuthResponse, resp); err != nil {
		return err
	}

	h.registry.AddPlayer(conn, user.ID, user.Username, user.DisplayName, user.EloRating)
	return nil
}
