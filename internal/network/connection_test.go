package network

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-server/internal/protocol"
)

type ConnectionSuite struct {
	suite.Suite
	conn *Connection
	peer net.Conn
}

func TestConnectionSuite(t *testing.T) {
	suite.Run(t, new(ConnectionSuite))
}

func (s *ConnectionSuite) SetupTest() {
	server, client := net.Pipe()
	s.conn = NewConnection(server, DefaultConfig())
	s.peer = client
}

func (s *ConnectionSuite) TearDownTest() {
	s.conn.Disconnect()
	_ = s.peer.Close()
}

func (s *ConnectionSuite) TestNewConnectionIsConnectedAndAnonymous() {
	s.True(s.conn.IsConnected())
	s.False(s.conn.IsAuthenticated())
	s.Zero(s.conn.UserID())
	s.NotEqual(s.conn.ID(), NewConnection(s.peer, DefaultConfig()).ID())
}

func (s *ConnectionSuite) TestSendDeliversFrameAndCountsBytes() {
	done := make(chan protocol.Header, 1)
	go func() {
		h, _, err := protocol.ReadMessage(s.peer, protocol.DefaultMaxMessageSize)
		if err == nil {
			done <- h
		}
	}()

	err := s.conn.SendMessage(protocol.TypeQueueJoin, protocol.QueueJoin{TimeLimit: 60})
	s.Require().NoError(err)

	select {
	case h := <-done:
		s.Equal(protocol.TypeQueueJoin, h.Type)
	case <-time.After(time.Second):
		s.FailNow("peer did not receive message")
	}
	s.Equal(uint64(protocol.HeaderSize+protocol.QueueJoinSize), s.conn.BytesSent())
}

func (s *ConnectionSuite) TestReceiveCountsBytes() {
	go func() {
		h := protocol.NewHeader(protocol.TypePing, 0, time.Now())
		_ = protocol.WriteMessage(s.peer, h, nil)
	}()

	h, payload, err := s.conn.Receive()
	s.Require().NoError(err)
	s.Equal(protocol.TypePing, h.Type)
	s.Empty(payload)
	s.Equal(uint64(protocol.HeaderSize), s.conn.BytesReceived())
}

func (s *ConnectionSuite) TestReceiveAfterPeerCloseDisconnects() {
	_ = s.peer.Close()

	_, _, err := s.conn.Receive()
	s.ErrorIs(err, io.EOF)
	s.False(s.conn.IsConnected())
}

func (s *ConnectionSuite) TestOversizedMessageDisconnects() {
	server, client := net.Pipe()
	defer client.Close()
	conn := NewConnection(server, Config{MaxMessageSize: 16})

	go func() {
		h := protocol.NewHeader(protocol.TypePlayerList, 1000, time.Now())
		raw, _ := h.MarshalBinary()
		_, _ = client.Write(raw)
	}()

	_, _, err := conn.Receive()
	s.ErrorIs(err, protocol.ErrMessageTooLarge)
	s.False(conn.IsConnected())
}

func (s *ConnectionSuite) TestSendAfterPeerCloseDisconnects() {
	_ = s.peer.Close()

	err := s.conn.SendMessage(protocol.TypePong, nil)
	s.Error(err)
	s.False(s.conn.IsConnected())

	s.ErrorIs(s.conn.SendMessage(protocol.TypePong, nil), ErrNotConnected)
}

func (s *ConnectionSuite) TestAuthenticateOverwritesIdentity() {
	s.conn.Authenticate(5, "token-a")
	s.True(s.conn.IsAuthenticated())
	s.Equal(uint64(5), uint64(s.conn.UserID()))
	s.Equal("token-a", s.conn.SessionToken())

	s.conn.Authenticate(6, "token-b")
	s.Equal(uint64(6), uint64(s.conn.UserID()))
	s.Equal("token-b", s.conn.SessionToken())

	s.conn.Deauthenticate()
	s.False(s.conn.IsAuthenticated())
	s.Empty(s.conn.SessionToken())
}

func (s *ConnectionSuite) TestDisconnectIsIdempotent() {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.conn.Disconnect()
		}()
	}
	wg.Wait()
	s.False(s.conn.IsConnected())
}

func (s *ConnectionSuite) TestConcurrentSendsDoNotInterleave() {
	const senders = 8
	received := make(chan protocol.Header, senders)
	go func() {
		for i := 0; i < senders; i++ {
			h, payload, err := protocol.ReadMessage(s.peer, protocol.DefaultMaxMessageSize)
			if err != nil || len(payload) != protocol.ChallengeResultSize {
				return
			}
			received <- h
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_ = s.conn.SendMessage(protocol.TypeChallengeResult, protocol.ChallengeResult{ChallengeID: id})
		}(uint64(i))
	}
	wg.Wait()

	for i := 0; i < senders; i++ {
		select {
		case h := <-received:
			s.Equal(protocol.TypeChallengeResult, h.Type)
		case <-time.After(time.Second):
			s.FailNow("missing frame")
		}
	}
}
