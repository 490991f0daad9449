package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/testutil"
)

// recordingHandler claims a fixed set of types and remembers what it saw
type recordingHandler struct {
	name  string
	types map[protocol.MessageType]bool

	mu   sync.Mutex
	seen []protocol.MessageType
}

func newRecordingHandler(name string, types ...protocol.MessageType) *recordingHandler {
	h := &recordingHandler{name: name, types: make(map[protocol.MessageType]bool)}
	for _, t := range types {
		h.types[t] = true
	}
	return h
}

func (h *recordingHandler) CanHandle(t protocol.MessageType) bool {
	return h.types[t]
}

func (h *recordingHandler) Handle(ctx context.Context, conn *network.Connection, msg protocol.Message) error {
	h.mu.Lock()
	h.seen = append(h.seen, msg.Header.Type)
	h.mu.Unlock()
	return conn.SendMessage(protocol.TypeChallengeResult, protocol.ChallengeResult{Message: h.name})
}

func (h *recordingHandler) Seen() []protocol.MessageType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.MessageType(nil), h.seen...)
}

type ServerSuite struct {
	suite.Suite
	server *Server
	first  *recordingHandler
	second *recordingHandler

	mu           sync.Mutex
	disconnected []*network.Connection
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.MaxMessageSize = 1024

	s.disconnected = nil
	s.server = New(cfg, testutil.NopLogger())
	s.first = newRecordingHandler("first", protocol.TypeChallengeSend)
	s.second = newRecordingHandler("second", protocol.TypeChallengeSend, protocol.TypeQueueJoin)
	s.server.RegisterHandler(s.first)
	s.server.RegisterHandler(s.second)
	s.server.OnDisconnect(func(conn *network.Connection) {
		s.mu.Lock()
		s.disconnected = append(s.disconnected, conn)
		s.mu.Unlock()
	})

	s.Require().NoError(s.server.Start(context.Background()))
}

func (s *ServerSuite) TearDownTest() {
	s.server.Stop()
}

func (s *ServerSuite) dial() net.Conn {
	conn, err := net.Dial("tcp", s.server.Addr().String())
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	s.Eventually(func() bool { return s.server.ConnectionCount() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func (s *ServerSuite) send(conn net.Conn, t protocol.MessageType, body interface{ MarshalBinary() ([]byte, error) }) {
	h, payload, err := protocol.Encode(t, body, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(protocol.WriteMessage(conn, h, payload))
}

func (s *ServerSuite) read(conn net.Conn) (protocol.Header, []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	h, payload, err := protocol.ReadMessage(conn, protocol.DefaultMaxMessageSize)
	s.Require().NoError(err)
	return h, payload
}

func (s *ServerSuite) disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disconnected)
}

func (s *ServerSuite) TestPingPong() {
	conn := s.dial()
	s.send(conn, protocol.TypePing, nil)

	h, payload := s.read(conn)
	s.Equal(protocol.TypePong, h.Type)
	s.Zero(h.Length)
	s.Empty(payload)
	s.Empty(s.first.Seen())
}

func (s *ServerSuite) TestFirstAcceptingHandlerWins() {
	conn := s.dial()
	s.send(conn, protocol.TypeChallengeSend, protocol.ChallengeSend{TargetID: 2})

	h, payload := s.read(conn)
	s.Require().Equal(protocol.TypeChallengeResult, h.Type)
	var r protocol.ChallengeResult
	s.Require().NoError(r.UnmarshalBinary(payload))
	s.Equal("first", r.Message)
	s.Empty(s.second.Seen())

	s.send(conn, protocol.TypeQueueJoin, protocol.QueueJoin{TimeLimit: 60})
	_, payload = s.read(conn)
	s.Require().NoError(r.UnmarshalBinary(payload))
	s.Equal("second", r.Message)
}

func (s *ServerSuite) TestUnroutableMessageKeepsConnection() {
	conn := s.dial()
	s.send(conn, protocol.MessageType(77), nil)
	s.send(conn, protocol.TypePing, nil)

	h, _ := s.read(conn)
	s.Equal(protocol.TypePong, h.Type)
	s.Equal(1, s.server.ConnectionCount())
}

func (s *ServerSuite) TestOversizedMessageDropsClient() {
	conn := s.dial()
	h := protocol.NewHeader(protocol.TypeChallengeSend, 4096, time.Now())
	raw, err := h.MarshalBinary()
	s.Require().NoError(err)
	_, err = conn.Write(raw)
	s.Require().NoError(err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = protocol.ReadMessage(conn, protocol.DefaultMaxMessageSize)
	s.Error(err)

	s.Eventually(func() bool { return s.server.ConnectionCount() == 0 }, time.Second, 5*time.Millisecond)
	s.Eventually(func() bool { return s.disconnects() == 1 }, time.Second, 5*time.Millisecond)
	s.Empty(s.first.Seen())
}

func (s *ServerSuite) TestClientCloseRunsHooks() {
	conn := s.dial()
	_ = conn.Close()

	s.Eventually(func() bool { return s.disconnects() == 1 }, time.Second, 5*time.Millisecond)
	s.Zero(s.server.ConnectionCount())

	s.mu.Lock()
	gone := s.disconnected[0]
	s.mu.Unlock()
	s.False(gone.IsConnected())
}

func (s *ServerSuite) TestBroadcastReachesEveryClient() {
	a := s.dial()
	b := s.dial()
	s.Eventually(func() bool { return s.server.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	body := protocol.PlayerInfo{UserID: 9, Username: "zed", Status: 1}
	h, payload, err := protocol.Encode(protocol.TypePlayerStatusUpdate, body, time.Now())
	s.Require().NoError(err)
	s.server.Broadcast(h, payload)

	for _, conn := range []net.Conn{a, b} {
		got, raw := s.read(conn)
		s.Equal(protocol.TypePlayerStatusUpdate, got.Type)
		var info protocol.PlayerInfo
		s.Require().NoError(info.UnmarshalBinary(raw))
		s.Equal("zed", info.Username)
	}
}

func (s *ServerSuite) TestStatsCountTraffic() {
	conn := s.dial()
	s.send(conn, protocol.TypePing, nil)
	s.read(conn)

	st := s.server.Stats()
	s.Equal(1, st.Connections)
	s.Equal(uint64(1), st.TotalAccepted)
	s.Equal(uint64(protocol.HeaderSize), st.BytesReceived)
	s.Eventually(func() bool { return s.server.Stats().BytesSent == uint64(protocol.HeaderSize) }, time.Second, 5*time.Millisecond)

	_ = conn.Close()
	s.Eventually(func() bool { return s.server.ConnectionCount() == 0 }, time.Second, 5*time.Millisecond)
	s.Eventually(func() bool { return s.server.Stats().BytesSent == uint64(protocol.HeaderSize) }, time.Second, 5*time.Millisecond)
}

func (s *ServerSuite) TestStopClosesClients() {
	conn := s.dial()
	s.server.Stop()
	s.False(s.server.IsRunning())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := protocol.ReadMessage(conn, protocol.DefaultMaxMessageSize)
	s.Error(err)
	s.Zero(s.server.ConnectionCount())
}

func (s *ServerSuite) TestStartTwiceFails() {
	s.ErrorIs(s.server.Start(context.Background()), ErrAlreadyRunning)
}

func (s *ServerSuite) TestConnectionAcceptedDuringStopIsClosed() {
	s.server.Stop()

	raw, peer := net.Pipe()
	defer func() { _ = peer.Close() }()
	conn := network.NewConnection(raw, network.DefaultConfig())

	s.False(s.server.track(conn))
	s.False(conn.IsConnected())
	s.Zero(s.server.ConnectionCount())

	_ = peer.SetReadDeadline(time.Now().Add(time.Second))
	_, err := peer.Read(make([]byte, 1))
	s.Error(err, "peer sees the close")
}
