// Package challenge brokers direct 1:1 challenges between online players.
package challenge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/battleship-server/internal/dependencies/clock"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/protocol"
	"github.com/mcoot/battleship-server/internal/services/match"
	"github.com/mcoot/battleship-server/internal/services/registry"
)

// Config holds challenge timing settings
type Config struct {
	// Timeout is how long a challenge stays pending
	Timeout time.Duration `yaml:"timeout"`
	// SweepInterval is how often expired challenges are collected
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DefaultConfig returns default challenge settings
func DefaultConfig() Config {
	return Config{
		Timeout:       60 * time.Second,
		SweepInterval: time.Second,
	}
}

// Challenge is a pending challenge. It leaves the pending set exactly once.
type Challenge struct {
	ID              uint64
	ChallengerID    model.UserID
	TargetID        model.UserID
	TimeLimit       uint32
	RandomPlacement bool
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// Coordinator tracks pending challenges and turns accepted ones into matches
type Coordinator struct {
	registry *registry.Registry
	starter  *match.Starter
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	mu      sync.Mutex
	pending map[uint64]*Challenge
	nextID  uint64
}

// New creates a Coordinator
func New(reg *registry.Registry, starter *match.Starter, clk clock.Clock, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Coordinator{
		registry: reg,
		starter:  starter,
		clock:    clk,
		logger:   logger.With(slog.String("component", "challenge")),
		cfg:      cfg,
		pending:  make(map[uint64]*Challenge),
	}
}

// SendChallenge validates and records a challenge, then notifies the target.
// On validation failure the challenger receives a failed CHALLENGE_RESULT and
// nothing is recorded.
func (c *Coordinator) SendChallenge(ctx context.Context, challengerID model.UserID, req protocol.ChallengeSend) (uint64, error) {
	targetID := model.UserID(req.TargetID)

	if err := c.validate(challengerID, targetID); err != nil {
		c.logger.Info("challenge rejected",
			slog.Uint64("challenger_id", uint64(challengerID)),
			slog.Uint64("target_id", uint64(targetID)),
			slog.String("reason", err.Error()))
		c.sendResult(challengerID, 0, false, err.Error())
		return 0, err
	}

	challenger, _ := c.registry.GetInfo(challengerID)
	now := c.clock.Now()

	c.mu.Lock()
	c.nextID++
	ch := &Challenge{
		ID:              c.nextID,
		ChallengerID:    challengerID,
		TargetID:        targetID,
		TimeLimit:       req.TimeLimit,
		RandomPlacement: req.RandomPlacement,
		CreatedAt:       now,
		ExpiresAt:       now.Add(c.cfg.Timeout),
	}
	c.pending[ch.ID] = ch
	c.mu.Unlock()

	c.logger.Info("challenge sent",
		slog.Uint64("challenge_id", ch.ID),
		slog.Uint64("challenger_id", uint64(challengerID)),
		slog.Uint64("target_id", uint64(targetID)))

	if conn := c.registry.GetConnection(targetID); conn != nil {
		msg := protocol.ChallengeReceived{
			ChallengeID:           ch.ID,
			ChallengerID:          uint64(challengerID),
			ChallengerUsername:    challenger.Username,
			ChallengerDisplayName: challenger.DisplayName,
			ChallengerElo:         challenger.EloRating,
			TimeLimit:             ch.TimeLimit,
			RandomPlacement:       ch.RandomPlacement,
			ExpiresAt:             ch.ExpiresAt.Unix(),
		}
		if err := conn.SendMessage(protocol.TypeChallengeReceived, msg); err != nil {
			c.logger.Warn("notify challenge target failed",
				slog.Uint64("challenge_id", ch.ID),
				slog.String("error", err.Error()))
		}
	}

	c.sendResult(challengerID, ch.ID, true, "challenge sent")
	return ch.ID, nil
}

// validate applies the rules in order; the first failure wins
func (c *Coordinator) validate(challengerID, targetID model.UserID) error {
	if !c.registry.IsOnline(targetID) {
		return model.ErrTargetNotOnline
	}
	switch c.registry.GetStatus(targetID) {
	case model.StatusAvailable:
	case model.StatusInGame:
		return model.ErrTargetInGame
	case model.StatusBusy:
		return model.ErrTargetBusy
	default:
		return model.ErrTargetNotAvailable
	}
	if c.registry.GetStatus(challengerID) != model.StatusAvailable {
		return model.ErrChallengerUnavailable
	}
	if challengerID == targetID {
		return model.ErrSelfChallenge
	}
	return nil
}

// RespondToChallenge resolves a challenge addressed to responderID. The
// challenge is removed before anything else happens, so a response racing
// an expiry or cancel sees "not found".
func (c *Coordinator) RespondToChallenge(ctx context.Context, responderID model.UserID, resp protocol.ChallengeResponse) error {
	ch, ok := c.take(resp.ChallengeID, nil)
	if !ok {
		c.sendResult(responderID, resp.ChallengeID, false, model.ErrChallengeNotFound.Error())
		return model.ErrChallengeNotFound
	}

	if ch.TargetID != responderID {
		c.logger.Warn("challenge response from non-target",
			slog.Uint64("challenge_id", ch.ID),
			slog.Uint64("responder_id", uint64(responderID)),
			slog.Uint64("target_id", uint64(ch.TargetID)))
		c.sendResult(responderID, ch.ID, false, model.ErrNotChallengeTarget.Error())
		return model.ErrNotChallengeTarget
	}

	if !resp.Accepted {
		c.logger.Info("challenge declined", slog.Uint64("challenge_id", ch.ID))
		c.sendResult(ch.ChallengerID, ch.ID, false, model.ErrChallengeDeclined.Error())
		return nil
	}

	challenger, ok := c.registry.GetInfo(ch.ChallengerID)
	if !ok {
		c.sendResult(responderID, ch.ID, false, model.ErrPlayerNotOnline.Error())
		return model.ErrPlayerNotOnline
	}
	target, ok := c.registry.GetInfo(ch.TargetID)
	if !ok {
		c.sendResult(ch.ChallengerID, ch.ID, false, model.ErrPlayerNotOnline.Error())
		return model.ErrPlayerNotOnline
	}

	params := match.Params{
		First:           challenger,
		Second:          target,
		TimeLimit:       ch.TimeLimit,
		RandomPlacement: ch.RandomPlacement,
		Source:          model.MatchSourceChallenge,
	}
	m, err := c.starter.Start(ctx, params)
	if err != nil {
		msg := model.ErrMatchCreationFailed.Error()
		if errors.Is(err, model.ErrPlayerInGame) {
			msg = err.Error()
		}
		c.logger.Info("challenge accept failed",
			slog.Uint64("challenge_id", ch.ID),
			slog.String("error", err.Error()))
		c.sendResult(ch.ChallengerID, ch.ID, false, msg)
		c.sendResult(responderID, ch.ID, false, msg)
		return err
	}

	c.logger.Info("challenge accepted",
		slog.Uint64("challenge_id", ch.ID),
		slog.Uint64("match_id", uint64(m.ID)))
	return nil
}

// MatchStarted drops every pending challenge involving a player of m. The
// other party is told why: a challenger whose target is now in a game gets
// "target is in a game", a target whose challenger started a match gets
// "challenge cancelled".
func (c *Coordinator) MatchStarted(ctx context.Context, m *model.Match) {
	inGame := func(id model.UserID) bool { return id == m.Player1ID || id == m.Player2ID }

	c.mu.Lock()
	var dropped []*Challenge
	for id, ch := range c.pending {
		if inGame(ch.ChallengerID) || inGame(ch.TargetID) {
			dropped = append(dropped, ch)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, ch := range dropped {
		c.logger.Info("challenge dropped for match",
			slog.Uint64("challenge_id", ch.ID),
			slog.Uint64("match_id", uint64(m.ID)))
		switch {
		case !inGame(ch.ChallengerID):
			c.sendResult(ch.ChallengerID, ch.ID, false, model.ErrTargetInGame.Error())
		case !inGame(ch.TargetID):
			c.sendResult(ch.TargetID, ch.ID, false, model.ErrChallengeCancelled.Error())
		}
	}
}

// CancelChallenge removes a challenge without notifying anyone
func (c *Coordinator) CancelChallenge(id uint64) bool {
	_, ok := c.take(id, nil)
	return ok
}

// CancelOwnChallenge withdraws a challenge on behalf of its challenger and
// tells both sides.
func (c *Coordinator) CancelOwnChallenge(ctx context.Context, userID model.UserID, id uint64) error {
	ch, ok := c.take(id, func(ch *Challenge) bool { return ch.ChallengerID == userID })
	if !ok {
		c.sendResult(userID, id, false, model.ErrChallengeNotFound.Error())
		return model.ErrChallengeNotFound
	}

	c.logger.Info("challenge cancelled", slog.Uint64("challenge_id", ch.ID))
	c.sendResult(ch.TargetID, ch.ID, false, model.ErrChallengeCancelled.Error())
	c.sendResult(ch.ChallengerID, ch.ID, true, model.ErrChallengeCancelled.Error())
	return nil
}

// CheckExpiredChallenges removes every challenge whose deadline has passed
// and tells both sides. Returns the number removed.
func (c *Coordinator) CheckExpiredChallenges() int {
	now := c.clock.Now()

	c.mu.Lock()
	var expired []*Challenge
	for id, ch := range c.pending {
		if !now.Before(ch.ExpiresAt) {
			expired = append(expired, ch)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, ch := range expired {
		c.logger.Info("challenge expired", slog.Uint64("challenge_id", ch.ID))
		msg := model.ErrChallengeExpired.Error()
		c.sendResult(ch.ChallengerID, ch.ID, false, msg)
		c.sendResult(ch.TargetID, ch.ID, false, msg)
	}
	return len(expired)
}

// RemovePlayerChallenges drops every challenge involving userID without
// notification. Returns the number removed.
func (c *Coordinator) RemovePlayerChallenges(userID model.UserID) int {
	c.mu.Lock()
	removed := 0
	for id, ch := range c.pending {
		if ch.ChallengerID == userID || ch.TargetID == userID {
			delete(c.pending, id)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("removed player challenges",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("count", removed))
	}
	return removed
}

// PendingCount returns the number of pending challenges
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Run sweeps expired challenges every SweepInterval until ctx is done
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckExpiredChallenges()
		}
	}
}

// take atomically looks up and removes a challenge. If allow is non-nil the
// challenge is only removed when allow returns true.
func (c *Coordinator) take(id uint64, allow func(*Challenge) bool) (*Challenge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[id]
	if !ok {
		return nil, false
	}
	if allow != nil && !allow(ch) {
		return nil, false
	}
	delete(c.pending, id)
	return ch, true
}

func (c *Coordinator) sendResult(to model.UserID, id uint64, success bool, message string) {
	conn := c.registry.GetConnection(to)
	if conn == nil {
		return
	}
	msg := protocol.ChallengeResult{ChallengeID: id, Success: success, Message: message}
	if err := conn.SendMessage(protocol.TypeChallengeResult, msg); err != nil {
		c.logger.Warn("send challenge result failed",
			slog.Uint64("user_id", uint64(to)),
			slog.String("error", err.Error()))
	}
}
