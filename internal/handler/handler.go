// Package handler turns decoded protocol messages into calls on the auth
// service, the registry, the challenge coordinator and the matchmaking queue.
package handler

import (
	"context"
	"encoding"
	"errors"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/auth"
)

// Handler processes the message types it claims
type Handler interface {
	CanHandle(t protocol.MessageType) bool
	Handle(ctx context.Context, conn *network.Connection, msg protocol.Message) error
}

// ErrorCode maps an error to the code carried in an ERROR message
func ErrorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, model.ErrNotAuthenticated), errors.Is(err, auth.ErrInvalidSession):
		return protocol.CodeNotAuthenticated
	case errors.Is(err, auth.ErrInvalidCredentials):
		return protocol.CodeInvalidCredentials
	case errors.Is(err, model.ErrUsernameTaken):
		return protocol.CodeUsernameTaken
	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrChallengeNotFound),
		errors.Is(err, model.ErrNotQueued),
		errors.Is(err, model.ErrPlayerNotOnline):
		return protocol.CodeNotFound
	case errors.Is(err, model.ErrAlreadyQueued), errors.Is(err, model.ErrPlayerInGame):
		return protocol.CodeConflict
	case errors.Is(err, protocol.ErrShortPayload),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidPassword):
		return protocol.CodeBadRequest
	default:
		return protocol.CodeInternal
	}
}

// ErrorText is the client-facing text for err. Internal errors are not leaked.
func ErrorText(err error) string {
	if ErrorCode(err) == protocol.CodeInternal {
		return "internal server error"
	}
	return err.Error()
}

// SendError replies with an ERROR message describing err
func SendError(conn *network.Connection, err error) error {
	return conn.SendMessage(protocol.TypeError, protocol.ErrorMessage{
		Code:    ErrorCode(err),
		Message: ErrorText(err),
	})
}

// decode unmarshals the payload, replying BAD_REQUEST on failure
func decode(conn *network.Connection, msg protocol.Message, body encoding.BinaryUnmarshaler) bool {
	if err := protocol.Decode(msg.Payload, body); err != nil {
		_ = SendError(conn, err)
		return false
	}
	return true
}
