// Package match creates matches between two online players and notifies
// both sides. Challenges and matchmaking share it.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/battleship-server/internal/dependencies/clock"
	"github.com/mcoot/battleship-server/internal/events"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/registry"
	"github.com/mcoot/battleship-server/internal/storage"
)

// Params describes a match to create. First moves first.
type Params struct {
	First           model.PlayerInfo
	Second          model.PlayerInfo
	TimeLimit       uint32
	RandomPlacement bool
	Source          model.MatchSource
}

// StartHook runs after a match is announced and both players are IN_GAME
type StartHook func(ctx context.Context, m *model.Match)

// Starter persists matches and pushes MATCH_START to both players
type Starter struct {
	registry  *registry.Registry
	storage   storage.Storage
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
	hooks     []StartHook

	// mu serializes Start so a player can't enter two matches at once
	mu sync.Mutex
}

// NewStarter creates a Starter
func NewStarter(reg *registry.Registry, store storage.Storage, publisher events.Publisher, clk clock.Clock, logger *slog.Logger) *Starter {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Starter{
		registry:  reg,
		storage:   store,
		publisher: publisher,
		clock:     clk,
		logger:    logger.With(slog.String("component", "match")),
	}
}

// OnStart adds a hook run for every started match. Hooks must be added
// before the first Start.
func (s *Starter) OnStart(hook StartHook) {
	s.hooks = append(s.hooks, hook)
}

// create persists the match record only
func (s *Starter) create(ctx context.Context, p Params) (*model.Match, error) {
	m := &model.Match{
		Player1ID:       p.First.UserID,
		Player2ID:       p.Second.UserID,
		TimeLimit:       p.TimeLimit,
		RandomPlacement: p.RandomPlacement,
		Source:          p.Source,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.storage.CreateMatch(ctx, m); err != nil {
		s.logger.Error("create match failed",
			slog.Uint64("player1_id", uint64(p.First.UserID)),
			slog.Uint64("player2_id", uint64(p.Second.UserID)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", model.ErrMatchCreationFailed, err)
	}
	return m, nil
}

// announce sends each side a MATCH_START naming the other as opponent,
// marks both IN_GAME and publishes a match_created event.
func (s *Starter) announce(ctx context.Context, m *model.Match, p Params) {
	s.notify(p.First, p.Second, m, p, true)
	s.notify(p.Second, p.First, m, p, false)

	s.registry.UpdateStatus(p.First.UserID, model.StatusInGame)
	s.registry.UpdateStatus(p.Second.UserID, model.StatusInGame)

	s.logger.Info("match started",
		slog.Uint64("match_id", uint64(m.ID)),
		slog.Uint64("player1_id", uint64(m.Player1ID)),
		slog.Uint64("player2_id", uint64(m.Player2ID)),
		slog.String("source", string(m.Source)))

	event := model.Event{
		Type:      model.EventMatchCreated,
		Timestamp: m.CreatedAt,
		Payload:   model.MatchCreatedPayload{Match: *m},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish match event failed",
			slog.Uint64("match_id", uint64(m.ID)),
			slog.String("error", err.Error()))
	}
}

// Start creates and announces a match, then runs the start hooks. Nothing
// is sent when either player is already IN_GAME (model.ErrPlayerInGame) or
// the match record cannot be stored (model.ErrMatchCreationFailed).
func (s *Starter) Start(ctx context.Context, p Params) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []model.UserID{p.First.UserID, p.Second.UserID} {
		if s.registry.GetStatus(id) == model.StatusInGame {
			s.logger.Info("match refused, player in game", slog.Uint64("user_id", uint64(id)))
			return nil, model.ErrPlayerInGame
		}
	}

	m, err := s.create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, m, p)
	for _, hook := range s.hooks {
		hook(ctx, m)
	}
	return m, nil
}

func (s *Starter) notify(to, opponent model.PlayerInfo, m *model.Match, p Params, first bool) {
	conn := s.registry.GetConnection(to.UserID)
	if conn == nil {
		s.logger.Warn("player unreachable for match start",
			slog.Uint64("user_id", uint64(to.UserID)),
			slog.Uint64("match_id", uint64(m.ID)))
		return
	}

	msg := protocol.MatchStart{
		MatchID:             uint64(m.ID),
		OpponentID:          uint64(opponent.UserID),
		OpponentUsername:    opponent.Username,
		OpponentDisplayName: opponent.DisplayName,
		OpponentElo:         opponent.EloRating,
		TimeLimit:           p.TimeLimit,
		RandomPlacement:     p.RandomPlacement,
		YouGoFirst:          first,
	}
	if err := conn.SendMessage(protocol.TypeMatchStart, msg); err != nil {
		s.logger.Warn("send match start failed",
			slog.Uint64("user_id", uint64(to.UserID)),
			slog.String("error", err.Error()))
	}
}
