// Package stats gathers a snapshot of server activity for the admin API and
// the periodic console report.
package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/battleship-server/internal/dependencies/clock"
	"github.com/mcoot/battleship-server/internal/server"
	"github.com/mcoot/battleship-server/internal/services/challenge"
	"github.com/mcoot/battleship-server/internal/services/matchmaking"
	"github.com/mcoot/battleship-server/internal/services/registry"
	"github.com/mcoot/battleship-server/internal/storage"
)

// Snapshot is a point-in-time view of the server
type Snapshot struct {
	Uptime            time.Duration `json:"-"`
	UptimeSeconds     int64         `json:"uptime_seconds"`
	Connections       int           `json:"connections"`
	TotalAccepted     uint64        `json:"total_accepted"`
	OnlinePlayers     int           `json:"online_players"`
	QueueSize         int           `json:"queue_size"`
	PendingChallenges int           `json:"pending_challenges"`
	MatchesCreated    int64         `json:"matches_created"`
	BytesSent         uint64        `json:"bytes_sent"`
	BytesReceived     uint64        `json:"bytes_received"`
}

// Collector reads counters from the running components
type Collector struct {
	server     *server.Server
	registry   *registry.Registry
	challenges *challenge.Coordinator
	queue      *matchmaking.Queue
	storage    storage.Storage
	clock      clock.Clock
	startedAt  time.Time
}

// NewCollector creates a Collector. Uptime is measured from now.
func NewCollector(srv *server.Server, reg *registry.Registry, challenges *challenge.Coordinator, queue *matchmaking.Queue, store storage.Storage, clk clock.Clock) *Collector {
	return &Collector{
		server:     srv,
		registry:   reg,
		challenges: challenges,
		queue:      queue,
		storage:    store,
		clock:      clk,
		startedAt:  clk.Now(),
	}
}

// Collect builds a Snapshot. A storage error leaves MatchesCreated at zero
// and is returned alongside the rest of the numbers.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	traffic := c.server.Stats()
	uptime := clock.Since(c.clock, c.startedAt)

	snap := Snapshot{
		Uptime:            uptime,
		UptimeSeconds:     int64(uptime.Seconds()),
		Connections:       traffic.Connections,
		TotalAccepted:     traffic.TotalAccepted,
		OnlinePlayers:     c.registry.Count(),
		QueueSize:         c.queue.Size(),
		PendingChallenges: c.challenges.PendingCount(),
		BytesSent:         traffic.BytesSent,
		BytesReceived:     traffic.BytesReceived,
	}

	matches, err := c.storage.CountMatches(ctx)
	if err != nil {
		return snap, err
	}
	snap.MatchesCreated = matches
	return snap, nil
}

// Report logs a snapshot every interval until ctx is done
func (c *Collector) Report(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	logger = logger.With(slog.String("component", "stats"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := c.Collect(ctx)
			if err != nil {
				logger.Warn("count matches failed", slog.String("error", err.Error()))
			}
			logger.Info("server stats",
				slog.Duration("uptime", snap.Uptime.Truncate(time.Second)),
				slog.Int("connections", snap.Connections),
				slog.Int("online_players", snap.OnlinePlayers),
				slog.Int("queue_size", snap.QueueSize),
				slog.Int("pending_challenges", snap.PendingChallenges),
				slog.Int64("matches_created", snap.MatchesCreated),
				slog.Uint64("bytes_sent", snap.BytesSent),
				slog.Uint64("bytes_received", snap.BytesReceived))
		}
	}
}
