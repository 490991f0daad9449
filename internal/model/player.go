package model

import "time"

// UserID uniquely identifies a registered user. Zero is never assigned.
type UserID uint64

// DefaultEloRating is the rating given to newly registered users
const DefaultEloRating int32 = 1000

// User is the persisted account record
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	DisplayName  string    `json:"display_name"`
	EloRating    int32     `json:"elo_rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlayerStatus is the online state of a player. Values are part of the wire format.
type PlayerStatus uint8

const (
	StatusOffline   PlayerStatus = 0
	StatusAvailable PlayerStatus = 1
	StatusBusy      PlayerStatus = 2
	StatusInGame    PlayerStatus = 3
)

func (s PlayerStatus) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusAvailable:
		return "available"
	case StatusBusy:
		return "busy"
	case StatusInGame:
		return "in_game"
	default:
		return "unknown"
	}
}

// PlayerInfo is a snapshot of an online player's public state
type PlayerInfo struct {
	UserID      UserID       `json:"user_id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name"`
	EloRating   int32        `json:"elo_rating"`
	Status      PlayerStatus `json:"status"`
}
