package client

import (
	"context"
	"encoding"
	"errors"
	"time"

	"github.com/mcoot/battleship-server/internal/protocol"
)

// ErrAuthFailed wraps the server's reason for a rejected login or registration
var ErrAuthFailed = errors.New("authentication failed")

// Ping measures one PING/PONG round trip
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.request(ctx, protocol.TypePing, nil, protocol.TypePong, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Register creates an account and logs in on this connection
func (c *Client) Register(ctx context.Context, username, password, displayName string) (protocol.AuthResponse, error) {
	req := protocol.AuthRegister{Username: username, Password: password, DisplayName: displayName}
	return c.authenticate(ctx, protocol.TypeAuthRegister, req)
}

// Login authenticates this connection
func (c *Client) Login(ctx context.Context, username, password string) (protocol.AuthResponse, error) {
	req := protocol.AuthLogin{Username: username, Password: password}
	return c.authenticate(ctx, protocol.TypeAuthLogin, req)
}

func (c *Client) authenticate(ctx context.Context, t protocol.MessageType, body encoding.BinaryMarshaler) (protocol.AuthResponse, error) {
	var resp protocol.AuthResponse
	if err := c.request(ctx, t, body, protocol.TypeAuthResponse, &resp); err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, errors.Join(ErrAuthFailed, errors.New(resp.Message))
	}
	c.setToken(resp.SessionToken)
	return resp, nil
}

// Logout ends the session but keeps the connection open
func (c *Client) Logout(ctx context.Context) error {
	var resp protocol.AuthResponse
	if err := c.request(ctx, protocol.TypeAuthLogout, nil, protocol.TypeAuthResponse, &resp); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

// Players lists everyone online
func (c *Client) Players(ctx context.Context) ([]protocol.PlayerInfo, error) {
	var list protocol.PlayerList
	if err := c.request(ctx, protocol.TypePlayerListRequest, nil, protocol.TypePlayerList, &list); err != nil {
		return nil, err
	}
	return list.Players, nil
}

// Challenge sends a challenge and returns the server's verdict
func (c *Client) Challenge(ctx context.Context, target uint64, timeLimit uint32, randomPlacement bool) (protocol.ChallengeResult, error) {
	var res protocol.ChallengeResult
	req := protocol.ChallengeSend{TargetID: target, TimeLimit: timeLimit, RandomPlacement: randomPlacement}
	err := c.request(ctx, protocol.TypeChallengeSend, req, protocol.TypeChallengeResult, &res)
	return res, err
}

// AwaitChallenge waits for an incoming challenge
func (c *Client) AwaitChallenge(ctx context.Context) (protocol.ChallengeReceived, error) {
	var ch protocol.ChallengeReceived
	msg, err := c.Await(ctx, protocol.TypeChallengeReceived)
	if err != nil {
		return ch, err
	}
	err = ch.UnmarshalBinary(msg.Payload)
	return ch, err
}

// Respond accepts or declines a challenge. Nothing is sent back on success,
// so callers wait for MATCH_START or CHALLENGE_RESULT themselves.
func (c *Client) Respond(ctx context.Context, challengeID uint64, accept bool) error {
	return c.Send(protocol.TypeChallengeResponse, protocol.ChallengeResponse{ChallengeID: challengeID, Accepted: accept})
}

// CancelChallenge withdraws a challenge this client sent
func (c *Client) CancelChallenge(ctx context.Context, challengeID uint64) (protocol.ChallengeResult, error) {
	var res protocol.ChallengeResult
	err := c.request(ctx, protocol.TypeChallengeCancel, protocol.ChallengeCancel{ChallengeID: challengeID}, protocol.TypeChallengeResult, &res)
	return res, err
}

// AwaitMatch waits for MATCH_START
func (c *Client) AwaitMatch(ctx context.Context) (protocol.MatchStart, error) {
	var m protocol.MatchStart
	msg, err := c.Await(ctx, protocol.TypeMatchStart)
	if err != nil {
		return m, err
	}
	err = m.UnmarshalBinary(msg.Payload)
	return m, err
}

// JoinQueue enters matchmaking
func (c *Client) JoinQueue(ctx context.Context, timeLimit uint32) (protocol.QueueStatus, error) {
	return c.queueCall(ctx, protocol.TypeQueueJoin, protocol.QueueJoin{TimeLimit: timeLimit})
}

// LeaveQueue leaves matchmaking
func (c *Client) LeaveQueue(ctx context.Context) (protocol.QueueStatus, error) {
	return c.queueCall(ctx, protocol.TypeQueueLeave, nil)
}

// QueueStatus reports this player's place in the queue
func (c *Client) QueueStatus(ctx context.Context) (protocol.QueueStatus, error) {
	return c.queueCall(ctx, protocol.TypeQueueStatusRequest, nil)
}

func (c *Client) queueCall(ctx context.Context, t protocol.MessageType, body encoding.BinaryMarshaler) (protocol.QueueStatus, error) {
	var st protocol.QueueStatus
	err := c.request(ctx, t, body, protocol.TypeQueueStatus, &st)
	return st, err
}
