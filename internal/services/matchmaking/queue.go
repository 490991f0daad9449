// Package matchmaking pairs queued players whose rating windows overlap.
// Windows widen the longer a player waits.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/battleship-server/internal/dependencies/clock"
	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/services/match"
	"github.com/mcoot/battleship-server/internal/services/registry"
	"github.com/mcoot/battleship-server/internal/storage"
)

// Config holds queue tuning
type Config struct {
	// TickInterval is how often a pairing pass runs
	TickInterval time.Duration `yaml:"tick_interval"`
	// InitialRange is the rating tolerance on join
	InitialRange int32 `yaml:"initial_range"`
	// RangeStep is added to the tolerance every ExpansionInterval
	RangeStep int32 `yaml:"range_step"`
	// ExpansionInterval is the wait needed for each RangeStep
	ExpansionInterval time.Duration `yaml:"expansion_interval"`
}

// DefaultConfig returns default queue settings
func DefaultConfig() Config {
	return Config{
		TickInterval:      50 * time.Millisecond,
		InitialRange:      100,
		RangeStep:         50,
		ExpansionInterval: 10 * time.Second,
	}
}

// Entry is a waiting player. EloRating is snapshotted at join time.
type Entry struct {
	UserID    model.UserID
	EloRating int32
	TimeLimit uint32
	JoinTime  time.Time
}

// Status is a live view of one player's place in the queue
type Status struct {
	Position int
	Total    int
	Wait     time.Duration
	EloMin   int32
	EloMax   int32
}

// Queue holds waiting players oldest first. index maps a user to its slot in
// entries and is rebuilt on every removal.
type Queue struct {
	registry *registry.Registry
	storage  storage.Storage
	starter  *match.Starter
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	mu      sync.Mutex
	entries []Entry
	index   map[model.UserID]int
}

// New creates a Queue
func New(reg *registry.Registry, store storage.Storage, starter *match.Starter, clk clock.Clock, cfg Config, logger *slog.Logger) *Queue {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.ExpansionInterval <= 0 {
		cfg.ExpansionInterval = def.ExpansionInterval
	}
	return &Queue{
		registry: reg,
		storage:  store,
		starter:  starter,
		clock:    clk,
		logger:   logger.With(slog.String("component", "matchmaking")),
		cfg:      cfg,
		index:    make(map[model.UserID]int),
	}
}

// JoinQueue adds userID with its stored rating and marks the player BUSY
func (q *Queue) JoinQueue(ctx context.Context, userID model.UserID, timeLimit uint32) error {
	if q.Contains(userID) {
		return model.ErrAlreadyQueued
	}

	user, err := q.storage.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up rating: %w", err)
	}

	q.mu.Lock()
	if _, ok := q.index[userID]; ok {
		q.mu.Unlock()
		return model.ErrAlreadyQueued
	}
	if q.registry.GetStatus(userID) == model.StatusInGame {
		q.mu.Unlock()
		return model.ErrPlayerInGame
	}
	// BUSY is set before the entry is visible to Tick
	q.registry.UpdateStatus(userID, model.StatusBusy)
	q.entries = append(q.entries, Entry{
		UserID:    userID,
		EloRating: user.EloRating,
		TimeLimit: timeLimit,
		JoinTime:  q.clock.Now(),
	})
	q.index[userID] = len(q.entries) - 1
	size := len(q.entries)
	q.mu.Unlock()

	q.logger.Info("player joined queue",
		slog.Uint64("user_id", uint64(userID)),
		slog.Int("elo", int(user.EloRating)),
		slog.Int("queue_size", size))
	return nil
}

// LeaveQueue removes userID and makes the player AVAILABLE again
func (q *Queue) LeaveQueue(userID model.UserID) error {
	if !q.remove(userID) {
		return model.ErrNotQueued
	}
	q.logger.Info("player left queue", slog.Uint64("user_id", uint64(userID)))
	q.registry.UpdateStatus(userID, model.StatusAvailable)
	return nil
}

// RemovePlayer drops userID without touching its status. Used on disconnect.
func (q *Queue) RemovePlayer(userID model.UserID) bool {
	return q.remove(userID)
}

// Contains reports whether userID is queued
func (q *Queue) Contains(userID model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.index[userID]
	return ok
}

// Size returns the number of waiting players
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// GetQueueStatus reports the 1-based position, wait and current window
func (q *Queue) GetQueueStatus(userID model.UserID) (Status, error) {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.index[userID]
	if !ok {
		return Status{}, model.ErrNotQueued
	}
	e := q.entries[i]
	lo, hi := q.bounds(e, now)
	return Status{
		Position: i + 1,
		Total:    len(q.entries),
		Wait:     now.Sub(e.JoinTime),
		EloMin:   lo,
		EloMax:   hi,
	}, nil
}

// Window is the rating tolerance of an entry that joined at joinTime
func (q *Queue) Window(joinTime, now time.Time) int32 {
	wait := now.Sub(joinTime)
	if wait < 0 {
		wait = 0
	}
	steps := int32(wait / q.cfg.ExpansionInterval)
	return q.cfg.InitialRange + steps*q.cfg.RangeStep
}

func (q *Queue) bounds(e Entry, now time.Time) (int32, int32) {
	w := q.Window(e.JoinTime, now)
	return e.EloRating - w, e.EloRating + w
}

// Tick runs one pairing pass. The oldest entry is the anchor and the first
// later entry whose window overlaps it is its opponent. Returns the match, or
// nil when nobody was paired.
func (q *Queue) Tick(ctx context.Context) *model.Match {
	now := q.clock.Now()

	q.mu.Lock()
	if len(q.entries) < 2 {
		q.mu.Unlock()
		return nil
	}
	anchor := q.entries[0]
	aMin, aMax := q.bounds(anchor, now)

	found := -1
	for i := 1; i < len(q.entries); i++ {
		cMin, cMax := q.bounds(q.entries[i], now)
		if !(aMax < cMin || cMax < aMin) {
			found = i
			break
		}
	}
	if found < 0 {
		q.mu.Unlock()
		return nil
	}
	opponent := q.entries[found]
	q.removeAt(found)
	q.removeAt(0)
	q.mu.Unlock()

	return q.pair(ctx, anchor, opponent)
}

func (q *Queue) pair(ctx context.Context, anchor, opponent Entry) *model.Match {
	first, ok1 := q.registry.GetInfo(anchor.UserID)
	second, ok2 := q.registry.GetInfo(opponent.UserID)
	if !ok1 || !ok2 {
		q.logger.Warn("paired player went offline",
			slog.Uint64("anchor_id", uint64(anchor.UserID)),
			slog.Uint64("opponent_id", uint64(opponent.UserID)))
		q.release(anchor.UserID, opponent.UserID)
		return nil
	}

	params := match.Params{
		First:     first,
		Second:    second,
		TimeLimit: min(anchor.TimeLimit, opponent.TimeLimit),
		Source:    model.MatchSourceMatchmaking,
	}
	m, err := q.starter.Start(ctx, params)
	if errors.Is(err, model.ErrPlayerInGame) {
		// one side was matched elsewhere; the other keeps its place
		for _, e := range []Entry{anchor, opponent} {
			if q.registry.GetStatus(e.UserID) == model.StatusBusy {
				q.requeue(e)
			}
		}
		return nil
	}
	if err != nil {
		q.release(anchor.UserID, opponent.UserID)
		return nil
	}

	q.logger.Info("players matched",
		slog.Uint64("match_id", uint64(m.ID)),
		slog.Uint64("anchor_id", uint64(anchor.UserID)),
		slog.Uint64("opponent_id", uint64(opponent.UserID)),
		slog.Int("elo_gap", int(anchor.EloRating-opponent.EloRating)))
	return m
}

// MatchStarted drops both players of m from the queue. It is registered as
// a match start hook so a player who queued while a challenge was pending
// cannot be paired a second time.
func (q *Queue) MatchStarted(ctx context.Context, m *model.Match) {
	for _, id := range []model.UserID{m.Player1ID, m.Player2ID} {
		if q.remove(id) {
			q.logger.Info("player left queue for match",
				slog.Uint64("user_id", uint64(id)),
				slog.Uint64("match_id", uint64(m.ID)))
		}
	}
}

// release puts paired players back to AVAILABLE without notification
func (q *Queue) release(ids ...model.UserID) {
	for _, id := range ids {
		q.registry.UpdateStatus(id, model.StatusAvailable)
	}
}

// Run ticks until ctx is done
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.TickInterval)
	defer ticker.Stop()

	q.logger.Info("matchmaking started", slog.Duration("tick", q.cfg.TickInterval))
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("matchmaking stopped")
			return
		case <-ticker.C:
			q.Tick(ctx)
		}
	}
}

func (q *Queue) remove(userID model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i, ok := q.index[userID]
	if !ok {
		return false
	}
	q.removeAt(i)
	return true
}

// requeue puts e back in join order unless it is already queued
func (q *Queue) requeue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.index[e.UserID]; ok {
		return
	}
	i := sort.Search(len(q.entries), func(i int) bool { return q.entries[i].JoinTime.After(e.JoinTime) })
	q.entries = slices.Insert(q.entries, i, e)
	q.reindex()
	q.logger.Debug("player requeued", slog.Uint64("user_id", uint64(e.UserID)), slog.Int("position", i+1))
}

// removeAt must be called with mu held
func (q *Queue) removeAt(i int) {
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.reindex()
}

// reindex must be called with mu held
func (q *Queue) reindex() {
	clear(q.index)
	for pos, e := range q.entries {
		q.index[e.UserID] = pos
	}
}
