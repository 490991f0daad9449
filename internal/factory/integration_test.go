package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-server/internal/config"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
	redisstorage "github.com/mcoot/battleship-server/internal/storage/redis"
	"github.com/mcoot/battleship-server/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

type online struct {
	user model.User
	conn *network.Connection
	peer *testutil.Peer
}

// login registers an account and puts it online on a pipe connection
func (s *IntegrationSuite) login(username string) online {
	session, err := s.app.AuthService.Register(s.ctx, username, "password1", "")
	s.Require().NoError(err)

	conn, peer := testutil.NewPipeConn(s.T())
	conn.Authenticate(session.User.ID, session.Token)
	s.app.Registry.AddPlayer(conn, session.User.ID, session.User.Username, session.User.DisplayName, session.User.EloRating)
	return online{user: session.User, conn: conn, peer: peer}
}

// Test: a challenge goes from send to match with storage, registry and events in step
func (s *IntegrationSuite) TestChallengeToMatch() {
	s.app.MockRandom.QueueString("alice-token", "bob-token")
	alice := s.login("alice")
	bob := s.login("bob")
	s.Equal("alice-token", alice.conn.SessionToken())

	id, err := s.app.Challenges.SendChallenge(s.ctx, alice.user.ID, protocol.ChallengeSend{TargetID: uint64(bob.user.ID), TimeLimit: 300})
	s.Require().NoError(err)
	bob.peer.Expect(s.T(), protocol.TypeChallengeReceived)
	alice.peer.Expect(s.T(), protocol.TypeChallengeResult)

	err = s.app.Challenges.RespondToChallenge(s.ctx, bob.user.ID, protocol.ChallengeResponse{ChallengeID: id, Accepted: true})
	s.Require().NoError(err)

	var start protocol.MatchStart
	alice.peer.ExpectInto(s.T(), protocol.TypeMatchStart, &start)
	s.True(start.YouGoFirst)

	count, err := s.app.Storage.CountMatches(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
	s.Len(s.app.MockPublisher.Events(), 1)
	s.Equal(model.StatusInGame, s.app.Registry.GetStatus(bob.user.ID))
}

// Test: sessions release queue entries and challenges on disconnect
func (s *IntegrationSuite) TestDisconnectReleasesEverything() {
	alice := s.login("alice")
	bob := s.login("bob")

	_, err := s.app.Challenges.SendChallenge(s.ctx, bob.user.ID, protocol.ChallengeSend{TargetID: uint64(alice.user.ID), TimeLimit: 60})
	s.Require().NoError(err)
	s.Require().NoError(s.app.Queue.JoinQueue(s.ctx, alice.user.ID, 60))

	s.app.Sessions.Disconnected(alice.conn)

	s.False(s.app.Registry.IsOnline(alice.user.ID))
	s.Zero(s.app.Queue.Size())
	s.Zero(s.app.Challenges.PendingCount())
	s.Equal(1, s.app.AuthService.SessionCount())
}

// Test: two new accounts share a rating and pair on the first tick
func (s *IntegrationSuite) TestQueuePairsNewAccounts() {
	alice := s.login("alice")
	carol := s.login("carol")

	s.Require().NoError(s.app.Queue.JoinQueue(s.ctx, alice.user.ID, 300))
	s.Require().NoError(s.app.Queue.JoinQueue(s.ctx, carol.user.ID, 300))

	m := s.app.Queue.Tick(s.ctx)
	s.Require().NotNil(m)
	s.Equal(model.MatchSourceMatchmaking, m.Source)
	alice.peer.Expect(s.T(), protocol.TypeMatchStart)
	carol.peer.Expect(s.T(), protocol.TypeMatchStart)
}

// Test: stats reflect the live components
func (s *IntegrationSuite) TestStatsSnapshot() {
	alice := s.login("alice")
	s.login("bob")
	s.Require().NoError(s.app.Queue.JoinQueue(s.ctx, alice.user.ID, 300))
	s.app.MockClock.Advance(90 * time.Second)

	snap, err := s.app.Stats.Collect(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, snap.OnlinePlayers)
	s.Equal(1, snap.QueueSize)
	s.Equal(int64(90), snap.UptimeSeconds)
	s.Zero(snap.MatchesCreated)
}

func TestNewWithRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Storage.Type = config.StorageRedis
	cfg.Storage.Redis.URL = "redis://" + mr.Addr()

	app, err := New(context.Background(), cfg, testutil.NopLogger())
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.IsType(t, &redisstorage.Storage{}, app.Storage)
	assert.NoError(t, app.Storage.Ping(context.Background()))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown storage": func(c *config.Config) { c.Storage.Type = "cassandra" },
		"redis no url":    func(c *config.Config) { c.Storage.Type = config.StorageRedis; c.Storage.Redis.URL = "" },
		"postgres no dsn": func(c *config.Config) { c.Storage.Type = config.StoragePostgres; c.Storage.Postgres.DSN = "" },
		"unknown events":  func(c *config.Config) { c.Events.Type = "kafka" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			_, err := New(context.Background(), cfg, nil)
			assert.Error(t, err)
		})
	}
}
