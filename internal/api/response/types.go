package response

import (
	"time"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/stats"
)

// Player represents a player in API responses
type Player struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	EloRating   int32  `json:"elo_rating"`
	Status      string `json:"status"`
}

// PlayerFromInfo converts a registry snapshot
func PlayerFromInfo(p model.PlayerInfo) Player {
	return Player{
		ID:          uint64(p.UserID),
		Username:    p.Username,
		DisplayName: p.DisplayName,
		EloRating:   p.EloRating,
		Status:      p.Status.String(),
	}
}

// PlayerFromUser converts a stored account of a player who is not online
func PlayerFromUser(u *model.User) Player {
	return Player{
		ID:          uint64(u.ID),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		EloRating:   u.EloRating,
		Status:      model.StatusOffline.String(),
	}
}

// PlayerList is the response for the player listing
type PlayerList struct {
	Players []Player `json:"players"`
	Count   int      `json:"count"`
}

// Match represents a created match
type Match struct {
	ID              uint64    `json:"id"`
	Player1ID       uint64    `json:"player1_id"`
	Player2ID       uint64    `json:"player2_id"`
	TimeLimit       uint32    `json:"time_limit"`
	RandomPlacement bool      `json:"random_placement"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// MatchFromModel converts model.Match
func MatchFromModel(m *model.Match) Match {
	return Match{
		ID:              uint64(m.ID),
		Player1ID:       uint64(m.Player1ID),
		Player2ID:       uint64(m.Player2ID),
		TimeLimit:       m.TimeLimit,
		RandomPlacement: m.RandomPlacement,
		Source:          string(m.Source),
		CreatedAt:       m.CreatedAt,
	}
}

// Stats is the response for the stats endpoint
type Stats = stats.Snapshot

// Health is the response for the health check
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
