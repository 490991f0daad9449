package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-server/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// User tests

func (s *StorageSuite) TestCreateUserAssignsNonZeroIDs() {
	alice := &model.User{Username: "alice", DisplayName: "Alice", EloRating: 1000}
	bob := &model.User{Username: "bob", DisplayName: "Bob", EloRating: 1000}

	s.Require().NoError(s.storage.CreateUser(s.ctx, alice))
	s.Require().NoError(s.storage.CreateUser(s.ctx, bob))

	s.NotZero(alice.ID)
	s.NotZero(bob.ID)
	s.NotEqual(alice.ID, bob.ID)
}

func (s *StorageSuite) TestGetUserByID() {
	user := &model.User{Username: "alice", DisplayName: "Alice", EloRating: 1100, CreatedAt: time.Now()}
	_ = s.storage.CreateUser(s.ctx, user)

	retrieved, err := s.storage.GetUserByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("alice", retrieved.Username)
	s.Equal(int32(1100), retrieved.EloRating)
}

func (s *StorageSuite) TestGetUserByIDNotFound() {
	_, err := s.storage.GetUserByID(s.ctx, 99)
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestGetUserByUsername() {
	user := &model.User{Username: "alice", DisplayName: "Alice"}
	_ = s.storage.CreateUser(s.ctx, user)

	retrieved, err := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.ID)

	_, err = s.storage.GetUserByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestCreateUserDuplicateUsername() {
	_ = s.storage.CreateUser(s.ctx, &model.User{Username: "alice"})

	err := s.storage.CreateUser(s.ctx, &model.User{Username: "alice"})
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *StorageSuite) TestReturnedUserIsACopy() {
	user := &model.User{Username: "alice", EloRating: 1000}
	_ = s.storage.CreateUser(s.ctx, user)

	retrieved, _ := s.storage.GetUserByID(s.ctx, user.ID)
	retrieved.EloRating = 5

	again, _ := s.storage.GetUserByID(s.ctx, user.ID)
	s.Equal(int32(1000), again.EloRating)
}

// Match tests

func (s *StorageSuite) TestCreateAndGetMatch() {
	match := &model.Match{Player1ID: 1, Player2ID: 2, TimeLimit: 300, Source: model.MatchSourceChallenge}
	s.Require().NoError(s.storage.CreateMatch(s.ctx, match))
	s.NotZero(match.ID)

	retrieved, err := s.storage.GetMatch(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Equal(model.UserID(1), retrieved.Player1ID)
	s.Equal(model.UserID(2), retrieved.Player2ID)
	s.Equal(model.MatchSourceChallenge, retrieved.Source)

	_, err = s.storage.GetMatch(s.ctx, 999)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestCountMatches() {
	count, err := s.storage.CountMatches(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	_ = s.storage.CreateMatch(s.ctx, &model.Match{Player1ID: 1, Player2ID: 2})
	_ = s.storage.CreateMatch(s.ctx, &model.Match{Player1ID: 3, Player2ID: 4})

	count, _ = s.storage.CountMatches(s.ctx)
	s.Equal(int64(2), count)
}

func (s *StorageSuite) TestConcurrentMatchCreationYieldsUniqueIDs() {
	const n = 50
	ids := make(chan model.MatchID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := &model.Match{Player1ID: 1, Player2ID: 2}
			if err := s.storage.CreateMatch(s.ctx, m); err == nil {
				ids <- m.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[model.MatchID]bool)
	for id := range ids {
		s.False(seen[id])
		seen[id] = true
	}
	s.Len(seen, n)
}
