package model

import "time"

// MatchID identifies a created match. Zero is never assigned.
type MatchID uint64

// MatchSource records how two players were paired
type MatchSource string

const (
	MatchSourceChallenge   MatchSource = "challenge"
	MatchSourceMatchmaking MatchSource = "matchmaking"
)

// Match is the persisted record of a game between two players.
// Player1 moves first.
type Match struct {
	ID              MatchID     `json:"id"`
	Player1ID       UserID      `json:"player1_id"`
	Player2ID       UserID      `json:"player2_id"`
	TimeLimit       uint32      `json:"time_limit"`
	RandomPlacement bool        `json:"random_placement"`
	Source          MatchSource `json:"source"`
	CreatedAt       time.Time   `json:"created_at"`
}
