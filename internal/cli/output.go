package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case PingResult:
		fmt.Printf("PONG from %s in %.2fms\n", v.Addr, v.RTTMillis)
	case AuthResult:
		o.printAuthResult(v)
	case PlayerRows:
		o.printPlayers(v)
	case ChallengeOutcome:
		o.printChallengeOutcome(v)
	case IncomingChallenge:
		o.printIncoming(v)
	case MatchResult:
		o.printMatch(v)
	case QueueResult:
		o.printQueue(v)
	case StatsResult:
		o.printStats(v)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
		fmt.Printf("Storage: %s\n", v.Storage)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// PingResult is a measured round trip
type PingResult struct {
	Addr      string  `json:"addr"`
	RTTMillis float64 `json:"rtt_ms"`
}

// AuthResult describes the logged in account
type AuthResult struct {
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	EloRating    int32  `json:"elo_rating"`
	SessionToken string `json:"session_token"`
}

// PlayerRow is one online player
type PlayerRow struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	EloRating   int32  `json:"elo_rating"`
	Status      string `json:"status"`
}

// PlayerRows is a player listing
type PlayerRows []PlayerRow

func playerRowFrom(p protocol.PlayerInfo) PlayerRow {
	return PlayerRow{
		ID:          p.UserID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		EloRating:   p.EloRating,
		Status:      model.PlayerStatus(p.Status).String(),
	}
}

// ChallengeOutcome is the server's answer to a sent challenge
type ChallengeOutcome struct {
	ChallengeID uint64 `json:"challenge_id"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
}

// IncomingChallenge is a challenge addressed to us
type IncomingChallenge struct {
	ChallengeID     uint64 `json:"challenge_id"`
	ChallengerID    uint64 `json:"challenger_id"`
	Challenger      string `json:"challenger"`
	ChallengerElo   int32  `json:"challenger_elo"`
	TimeLimit       uint32 `json:"time_limit"`
	RandomPlacement bool   `json:"random_placement"`
	ExpiresAt       int64  `json:"expires_at"`
}

func incomingFrom(c protocol.ChallengeReceived) IncomingChallenge {
	return IncomingChallenge{
		ChallengeID:     c.ChallengeID,
		ChallengerID:    c.ChallengerID,
		Challenger:      c.ChallengerUsername,
		ChallengerElo:   c.ChallengerElo,
		TimeLimit:       c.TimeLimit,
		RandomPlacement: c.RandomPlacement,
		ExpiresAt:       c.ExpiresAt,
	}
}

// MatchResult is a started match from our point of view
type MatchResult struct {
	MatchID         uint64 `json:"match_id"`
	OpponentID      uint64 `json:"opponent_id"`
	Opponent        string `json:"opponent"`
	OpponentElo     int32  `json:"opponent_elo"`
	TimeLimit       uint32 `json:"time_limit"`
	RandomPlacement bool   `json:"random_placement"`
	YouGoFirst      bool   `json:"you_go_first"`
}

func matchResultFrom(m protocol.MatchStart) MatchResult {
	return MatchResult{
		MatchID:         m.MatchID,
		OpponentID:      m.OpponentID,
		Opponent:        m.OpponentUsername,
		OpponentElo:     m.OpponentElo,
		TimeLimit:       m.TimeLimit,
		RandomPlacement: m.RandomPlacement,
		YouGoFirst:      m.YouGoFirst,
	}
}

// QueueResult is a matchmaking status
type QueueResult struct {
	InQueue     bool   `json:"in_queue"`
	Position    uint32 `json:"position"`
	TotalQueued uint32 `json:"total_queued"`
	WaitSeconds uint32 `json:"wait_seconds"`
	EloMin      int32  `json:"elo_min"`
	EloMax      int32  `json:"elo_max"`
	Message     string `json:"message"`
}

func queueResultFrom(s protocol.QueueStatus) QueueResult {
	return QueueResult{
		InQueue:     s.InQueue,
		Position:    s.Position,
		TotalQueued: s.TotalQueued,
		WaitSeconds: s.WaitSeconds,
		EloMin:      s.EloMin,
		EloMax:      s.EloMax,
		Message:     s.Message,
	}
}

// StatsResult mirrors the admin stats response
type StatsResult struct {
	UptimeSeconds     int64  `json:"uptime_seconds"`
	Connections       int    `json:"connections"`
	TotalAccepted     uint64 `json:"total_accepted"`
	OnlinePlayers     int    `json:"online_players"`
	QueueSize         int    `json:"queue_size"`
	PendingChallenges int    `json:"pending_challenges"`
	MatchesCreated    int64  `json:"matches_created"`
	BytesSent         uint64 `json:"bytes_sent"`
	BytesReceived     uint64 `json:"bytes_received"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (o *Output) printAuthResult(a AuthResult) {
	fmt.Printf("Player: %s (%d)\n", a.DisplayName, a.UserID)
	fmt.Printf("Username: %s\n", a.Username)
	fmt.Printf("Elo: %d\n", a.EloRating)
}

func (o *Output) printPlayers(rows PlayerRows) {
	if len(rows) == 0 {
		fmt.Println("No players online")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tELO\tSTATUS")
	for _, p := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Username, p.DisplayName, p.EloRating, p.Status)
	}
	_ = w.Flush()
}

func (o *Output) printChallengeOutcome(c ChallengeOutcome) {
	if !c.Success {
		fmt.Printf("Challenge failed: %s\n", c.Message)
		return
	}
	fmt.Printf("Challenge %d sent, waiting for a response\n", c.ChallengeID)
}

func (o *Output) printIncoming(c IncomingChallenge) {
	placement := "manual"
	if c.RandomPlacement {
		placement = "random"
	}
	fmt.Printf("Challenge %d from %s (%d, elo %d)\n", c.ChallengeID, c.Challenger, c.ChallengerID, c.ChallengerElo)
	fmt.Printf("Time limit: %ds, placement: %s\n", c.TimeLimit, placement)
}

func (o *Output) printMatch(m MatchResult) {
	fmt.Printf("Match %d started against %s (%d, elo %d)\n", m.MatchID, m.Opponent, m.OpponentID, m.OpponentElo)
	fmt.Printf("Time limit: %ds\n", m.TimeLimit)
	if m.YouGoFirst {
		fmt.Println("You go first")
	} else {
		fmt.Println("Opponent goes first")
	}
}

func (o *Output) printQueue(q QueueResult) {
	if !q.InQueue {
		fmt.Println(q.Message)
		return
	}
	fmt.Printf("Queued: position %d of %d, waited %ds, elo range %d-%d\n",
		q.Position, q.TotalQueued, q.WaitSeconds, q.EloMin, q.EloMax)
}

func (o *Output) printStats(s StatsResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Uptime:\t%ds\n", s.UptimeSeconds)
	fmt.Fprintf(w, "Connections:\t%d (%d total)\n", s.Connections, s.TotalAccepted)
	fmt.Fprintf(w, "Online players:\t%d\n", s.OnlinePlayers)
	fmt.Fprintf(w, "Queue size:\t%d\n", s.QueueSize)
	fmt.Fprintf(w, "Pending challenges:\t%d\n", s.PendingChallenges)
	fmt.Fprintf(w, "Matches created:\t%d\n", s.MatchesCreated)
	fmt.Fprintf(w, "Bytes sent/received:\t%d / %d\n", s.BytesSent, s.BytesReceived)
	_ = w.Flush()
}
