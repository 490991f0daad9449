package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/testutil"
)

type StorageSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	storage   *Storage
	ctx       context.Context
}

func TestStorageSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("battleship"),
		tcpostgres.WithUsername("battleship"),
		tcpostgres.WithPassword("battleship"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	cfg := DefaultConfig()
	cfg.DSN = dsn
	s.storage, err = New(s.ctx, cfg, testutil.NopLogger())
	s.Require().NoError(err)
}

func (s *StorageSuite) TearDownSuite() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *StorageSuite) SetupTest() {
	_, err := s.storage.pool.Exec(s.ctx, "TRUNCATE TABLE users, matches RESTART IDENTITY")
	s.Require().NoError(err)
}

func (s *StorageSuite) TestMigrateIsIdempotent() {
	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.NoError(Migrate(dsn, testutil.NopLogger()))
}

func (s *StorageSuite) TestCreateAndGetUser() {
	user := &model.User{
		Username:     "alice",
		PasswordHash: "hash",
		DisplayName:  "Alice",
		EloRating:    model.DefaultEloRating,
	}
	s.Require().NoError(s.storage.CreateUser(s.ctx, user))
	s.Equal(model.UserID(1), user.ID)

	byID, err := s.storage.GetUserByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Alice", byID.DisplayName)
	s.Equal(model.DefaultEloRating, byID.EloRating)

	byName, err := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, byName.ID)
}

func (s *StorageSuite) TestUserNotFound() {
	_, err := s.storage.GetUserByID(s.ctx, 404)
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.storage.GetUserByUsername(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestDuplicateUsername() {
	s.Require().NoError(s.storage.CreateUser(s.ctx, &model.User{Username: "alice", PasswordHash: "x", DisplayName: "A"}))

	err := s.storage.CreateUser(s.ctx, &model.User{Username: "alice", PasswordHash: "y", DisplayName: "B"})
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *StorageSuite) TestCreateAndGetMatch() {
	match := &model.Match{
		Player1ID:       1,
		Player2ID:       2,
		TimeLimit:       300,
		RandomPlacement: true,
		Source:          model.MatchSourceChallenge,
	}
	s.Require().NoError(s.storage.CreateMatch(s.ctx, match))
	s.NotZero(match.ID)

	got, err := s.storage.GetMatch(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Equal(model.UserID(1), got.Player1ID)
	s.Equal(model.UserID(2), got.Player2ID)
	s.Equal(uint32(300), got.TimeLimit)
	s.True(got.RandomPlacement)
	s.Equal(model.MatchSourceChallenge, got.Source)

	_, err = s.storage.GetMatch(s.ctx, 999)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestCountMatches() {
	_ = s.storage.CreateMatch(s.ctx, &model.Match{Player1ID: 1, Player2ID: 2, Source: model.MatchSourceMatchmaking})
	_ = s.storage.CreateMatch(s.ctx, &model.Match{Player1ID: 3, Player2ID: 4, Source: model.MatchSourceMatchmaking})

	count, err := s.storage.CountMatches(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}
