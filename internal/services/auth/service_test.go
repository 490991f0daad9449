package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/battleship-server/internal/dependencies/mocks"
	"github.com/mcoot/battleship-server/internal/dependencies/random"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/storage/memory"
	"github.com/mcoot/battleship-server/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	s.service = New(s.storage, s.clock, s.random, cfg, testutil.NopLogger())
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	s.random.QueueString("tok-alice")

	session, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	s.Equal("tok-alice", session.Token)
	s.NotZero(session.User.ID)
	s.Equal("alice", session.User.Username)
	s.Equal("Alice", session.User.DisplayName)
	s.Equal(model.DefaultEloRating, session.User.EloRating)
	s.Empty(session.User.PasswordHash)
	s.Equal(s.clock.Now().Add(24*time.Hour), session.ExpiresAt)
}

func (s *ServiceSuite) TestRegisterPersistsHashedPassword() {
	_, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	user, err := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.NotEmpty(user.PasswordHash)
	s.NotEqual("password123", user.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func (s *ServiceSuite) TestRegisterDefaultsDisplayName() {
	session, err := s.service.Register(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)
	s.Equal("alice", session.User.DisplayName)
}

func (s *ServiceSuite) TestRegisterFailsIfUsernameTaken() {
	_, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "different", "Alice2")
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ServiceSuite) TestRegisterValidatesInput() {
	cases := []struct {
		name     string
		username string
		password string
		err      error
	}{
		{"empty username", "", "pw", ErrInvalidUsername},
		{"space in username", "al ice", "pw", ErrInvalidUsername},
		{"long username", strings.Repeat("a", 32), "pw", ErrInvalidUsername},
		{"empty password", "alice", "", ErrInvalidPassword},
		{"long password", "alice", strings.Repeat("p", 64), ErrInvalidPassword},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Register(s.ctx, tc.username, tc.password, "")
			s.ErrorIs(err, tc.err)
		})
	}
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, _ := s.service.Register(s.ctx, "alice", "password123", "Alice")

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.NotEqual(registered.Token, session.Token)
	s.Equal(registered.User.ID, session.User.ID)
	s.Equal("Alice", session.User.DisplayName)
}

func (s *ServiceSuite) TestLoginFailsWithWrongPassword() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", "Alice")

	_, err := s.service.Login(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsWithUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Session tests

func (s *ServiceSuite) TestValidateSessionSucceeds() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "Alice")

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.User.ID, validated.User.ID)
}

func (s *ServiceSuite) TestValidateSessionFailsWithInvalidToken() {
	_, err := s.service.ValidateSession("invalid_token")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionFailsWhenExpired() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "Alice")

	s.clock.Advance(25 * time.Hour)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
	s.Zero(s.service.SessionCount())
}

func (s *ServiceSuite) TestInvalidateSessionRemovesSession() {
	session, _ := s.service.Register(s.ctx, "alice", "password123", "Alice")

	s.service.InvalidateSession(session.Token)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSessionNoopForUnknownToken() {
	s.service.InvalidateSession("unknown_token")
	s.Zero(s.service.SessionCount())
}

func (s *ServiceSuite) TestCleanExpiredSessionsRemovesExpired() {
	old, _ := s.service.Register(s.ctx, "alice", "password123", "Alice")

	s.clock.Advance(25 * time.Hour)
	fresh, _ := s.service.Register(s.ctx, "bob", "password123", "Bob")

	s.Equal(1, s.service.CleanExpiredSessions())

	_, err := s.service.ValidateSession(old.Token)
	s.ErrorIs(err, ErrInvalidSession)
	_, err = s.service.ValidateSession(fresh.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestRealTokensFitHeaderField() {
	svc := New(s.storage, s.clock, random.New(), DefaultConfig(), testutil.NopLogger())
	svc.cfg.BcryptCost = bcrypt.MinCost

	session, err := svc.Register(s.ctx, "carol", "password123", "")
	s.Require().NoError(err)
	s.Len(session.Token, TokenLength)
	s.Less(len(session.Token), 64)
}
