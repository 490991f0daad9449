// Package registry tracks which authenticated players are online, their
// status, and the connection that reaches them.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// Broadcaster fans a framed message out to every live connection
type Broadcaster interface {
	Broadcast(h protocol.Header, payload []byte)
}

type entry struct {
	info model.PlayerInfo
	conn *network.Connection
}

// Registry is the authoritative map of online players.
// Status changes are broadcast after the lock is released.
type Registry struct {
	broadcaster Broadcaster
	logger      *slog.Logger

	mu      sync.RWMutex
	players map[model.UserID]*entry
}

// New creates a registry. broadcaster may be nil, in which case status
// changes are not announced.
func New(broadcaster Broadcaster, logger *slog.Logger) *Registry {
	return &Registry{
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "registry")),
		players:     make(map[model.UserID]*entry),
	}
}

// AddPlayer inserts or replaces the record for userID with status AVAILABLE
func (r *Registry) AddPlayer(conn *network.Connection, userID model.UserID, username, displayName string, elo int32) {
	info := model.PlayerInfo{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		EloRating:   elo,
		Status:      model.StatusAvailable,
	}

	r.mu.Lock()
	_, replaced := r.players[userID]
	r.players[userID] = &entry{info: info, conn: conn}
	r.mu.Unlock()

	if replaced {
		r.logger.Warn("player record replaced",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("username", username))
	} else {
		r.logger.Info("player online",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("username", username))
	}

	r.broadcast(info)
}

// RemovePlayer deletes the record if present and announces OFFLINE
func (r *Registry) RemovePlayer(userID model.UserID) {
	r.mu.Lock()
	e, ok := r.players[userID]
	if ok {
		delete(r.players, userID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	r.announceOffline(e.info)
}

// RemovePlayerConnection removes the record only while it still points at
// conn, so a stale connection closing cannot evict a newer login.
func (r *Registry) RemovePlayerConnection(userID model.UserID, conn *network.Connection) bool {
	r.mu.Lock()
	e, ok := r.players[userID]
	if ok && e.conn == conn {
		delete(r.players, userID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		r.announceOffline(e.info)
	}
	return ok
}

func (r *Registry) announceOffline(info model.PlayerInfo) {
	r.logger.Info("player offline", slog.Uint64("user_id", uint64(info.UserID)))
	info.Status = model.StatusOffline
	r.broadcast(info)
}

// UpdateStatus changes a player's status. No-op if the player is offline.
func (r *Registry) UpdateStatus(userID model.UserID, status model.PlayerStatus) {
	r.mu.Lock()
	e, ok := r.players[userID]
	var info model.PlayerInfo
	if ok {
		e.info.Status = status
		info = e.info
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	r.logger.Debug("player status changed",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("status", status.String()))
	r.broadcast(info)
}

// GetStatus returns the player's status, OFFLINE if not registered
func (r *Registry) GetStatus(userID model.UserID) model.PlayerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.players[userID]; ok {
		return e.info.Status
	}
	return model.StatusOffline
}

func (r *Registry) IsOnline(userID model.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[userID]
	return ok
}

// GetInfo returns a copy of the player's record
func (r *Registry) GetInfo(userID model.UserID) (model.PlayerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.players[userID]
	if !ok {
		return model.PlayerInfo{}, false
	}
	return e.info, true
}

// GetConnection returns the connection reaching userID, or nil if offline
func (r *Registry) GetConnection(userID model.UserID) *network.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.players[userID]; ok {
		return e.conn
	}
	return nil
}

// ListOnline returns every online player ordered by user ID
func (r *Registry) ListOnline() []model.PlayerInfo {
	return r.list(func(model.PlayerInfo) bool { return true })
}

// ListAvailable returns online players whose status is AVAILABLE
func (r *Registry) ListAvailable() []model.PlayerInfo {
	return r.list(func(p model.PlayerInfo) bool { return p.Status == model.StatusAvailable })
}

func (r *Registry) list(keep func(model.PlayerInfo) bool) []model.PlayerInfo {
	r.mu.RLock()
	out := make([]model.PlayerInfo, 0, len(r.players))
	for _, e := range r.players {
		if keep(e.info) {
			out = append(out, e.info)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Count returns the number of online players
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *Registry) broadcast(info model.PlayerInfo) {
	if r.broadcaster == nil {
		return
	}
	h, payload, err := protocol.Encode(protocol.TypePlayerStatusUpdate, ToWire(info), time.Now())
	if err != nil {
		r.logger.Error("encode status update", slog.String("error", err.Error()))
		return
	}
	r.broadcaster.Broadcast(h, payload)
}

// ToWire converts a player snapshot to its protocol form
func ToWire(info model.PlayerInfo) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		UserID:      uint64(info.UserID),
		Username:    info.Username,
		DisplayName: info.DisplayName,
		EloRating:   info.EloRating,
		Status:      uint8(info.Status),
	}
}
