package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-server/internal/client"
	"github.com/mcoot/battleship-server/internal/factory"
	"github.com/mcoot/battleship-server/internal/protocol"
)

type ClientSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	app    *factory.TestApp
	addr   string
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.app = factory.NewTestApp()
	s.Require().NoError(s.app.Start(s.ctx))
	s.addr = s.app.Server.Addr().String()
}

func (s *ClientSuite) TearDownTest() {
	s.cancel()
	s.NoError(s.app.Close())
}

func (s *ClientSuite) dial() *client.Client {
	c, err := client.Dial(s.ctx, s.addr)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

func (s *ClientSuite) TestPing() {
	c := s.dial()

	rtt, err := c.Ping(s.ctx)
	s.Require().NoError(err)
	s.Positive(rtt)
}

func (s *ClientSuite) TestRegisterKeepsToken() {
	c := s.dial()

	resp, err := c.Register(s.ctx, "alice", "secret1", "Alice")
	s.Require().NoError(err)
	s.True(resp.Success)
	s.Equal("Alice", resp.DisplayName)
	s.Equal(resp.SessionToken, c.Token())

	s.Require().NoError(c.Logout(s.ctx))
	s.Empty(c.Token())
}

func (s *ClientSuite) TestLoginRejected() {
	c := s.dial()
	_, err := c.Register(s.ctx, "alice", "secret1", "")
	s.Require().NoError(err)

	other := s.dial()
	resp, err := other.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, client.ErrAuthFailed)
	s.False(resp.Success)
	s.Empty(other.Token())
}

func (s *ClientSuite) TestServerErrorIsReturned() {
	c := s.dial()

	_, err := c.Players(s.ctx)

	var serverErr *client.ServerError
	s.Require().True(errors.As(err, &serverErr))
	s.Equal(protocol.CodeNotAuthenticated, serverErr.Code)
}

func (s *ClientSuite) TestAwaitKeepsUnrelatedMessages() {
	alice := s.dial()
	aliceAuth, err := alice.Register(s.ctx, "alice", "secret1", "")
	s.Require().NoError(err)
	bob := s.dial()
	bobAuth, err := bob.Register(s.ctx, "bob", "secret2", "")
	s.Require().NoError(err)
	s.awaitOnline(alice, bobAuth.UserID)

	res, err := bob.Challenge(s.ctx, aliceAuth.UserID, 60, false)
	s.Require().NoError(err)
	s.Require().True(res.Success)

	// the challenge reaches alice before her player list reply
	players, err := alice.Players(s.ctx)
	s.Require().NoError(err)
	s.Len(players, 2)

	msg, err := alice.Next(s.ctx)
	s.Require().NoError(err)
	s.Equal(protocol.TypeChallengeReceived, msg.Header.Type)

	var incoming protocol.ChallengeReceived
	s.Require().NoError(incoming.UnmarshalBinary(msg.Payload))
	s.Equal(res.ChallengeID, incoming.ChallengeID)
	s.Equal(bobAuth.UserID, incoming.ChallengerID)
}

// awaitOnline consumes status updates on c until userID is reported
func (s *ClientSuite) awaitOnline(c *client.Client, userID uint64) {
	for {
		msg, err := c.Await(s.ctx, protocol.TypePlayerStatusUpdate)
		s.Require().NoError(err)
		var info protocol.PlayerInfo
		s.Require().NoError(info.UnmarshalBinary(msg.Payload))
		if info.UserID == userID {
			return
		}
	}
}

func (s *ClientSuite) TestChallengeAccepted() {
	alice := s.dial()
	aliceAuth, err := alice.Register(s.ctx, "alice", "secret1", "")
	s.Require().NoError(err)
	bob := s.dial()
	bobAuth, err := bob.Register(s.ctx, "bob", "secret2", "")
	s.Require().NoError(err)
	s.awaitOnline(alice, bobAuth.UserID)

	res, err := alice.Challenge(s.ctx, bobAuth.UserID, 300, true)
	s.Require().NoError(err)
	s.True(res.Success)

	incoming, err := bob.AwaitChallenge(s.ctx)
	s.Require().NoError(err)
	s.Equal(res.ChallengeID, incoming.ChallengeID)
	s.Equal(aliceAuth.UserID, incoming.ChallengerID)

	s.Require().NoError(bob.Respond(s.ctx, incoming.ChallengeID, true))

	aliceMatch, err := alice.AwaitMatch(s.ctx)
	s.Require().NoError(err)
	bobMatch, err := bob.AwaitMatch(s.ctx)
	s.Require().NoError(err)

	s.Equal(aliceMatch.MatchID, bobMatch.MatchID)
	s.Equal(bobAuth.UserID, aliceMatch.OpponentID)
	s.NotEqual(aliceMatch.YouGoFirst, bobMatch.YouGoFirst)
}

func (s *ClientSuite) TestClosedConnection() {
	c := s.dial()
	s.app.Server.Stop()

	_, err := c.Next(s.ctx)
	s.ErrorIs(err, client.ErrClosed)
}
