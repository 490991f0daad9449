package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/battleship-server/internal/api/sse"
	"github.com/mcoot/battleship-server/internal/config"
	"github.com/mcoot/battleship-server/internal/dependencies/clock"
	"github.com/mcoot/battleship-server/internal/dependencies/random"
	"github.com/mcoot/battleship-server/internal/events"
	"github.com/mcoot/battleship-server/internal/handler"
	"github.com/mcoot/battleship-server/internal/server"
	"github.com/mcoot/battleship-server/internal/services/auth"
	"github.com/mcoot/battleship-server/internal/services/challenge"
	"github.com/mcoot/battleship-server/internal/services/match"
	"github.com/mcoot/battleship-server/internal/services/matchmaking"
	"github.com/mcoot/battleship-server/internal/services/registry"
	"github.com/mcoot/battleship-server/internal/stats"
	"github.com/mcoot/battleship-server/internal/storage"
	"github.com/mcoot/battleship-server/internal/storage/memory"
	"github.com/mcoot/battleship-server/internal/storage/postgres"
	redisstorage "github.com/mcoot/battleship-server/internal/storage/redis"
)

// sessionSweepInterval is how often expired auth sessions are dropped
const sessionSweepInterval = 10 * time.Minute

// App contains all wired application components
type App struct {
	// Storage
	Storage   storage.Storage
	Publisher events.Publisher
	// Feed streams the same events to admin API clients
	Feed      *sse.Hub

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Server      *server.Server
	Registry    *registry.Registry
	AuthService *auth.Service
	Starter     *match.Starter
	Challenges  *challenge.Coordinator
	Queue       *matchmaking.Queue
	Sessions    *handler.Sessions
	Stats       *stats.Collector

	cfg    config.Config
	logger *slog.Logger
}

// New creates the application with storage and event backends chosen by cfg
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		closeStorage(store)
		return nil, err
	}

	return newWithDependencies(cfg, store, publisher, clock.New(), random.New(), logger), nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case "", config.StorageMemory:
		return memory.New(), nil
	case config.StorageRedis:
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis url required when storage type is redis")
		}
		return redisstorage.New(cfg.Redis)
	case config.StoragePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, errors.New("postgres dsn required when storage type is postgres")
		}
		return postgres.New(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be memory, redis or postgres", cfg.Type)
	}
}

func newPublisher(cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.Type {
	case "", config.EventsNone:
		return events.NopPublisher{}, nil
	case config.EventsNATS:
		return events.NewNATSPublisher(cfg.NATS, logger)
	default:
		return nil, fmt.Errorf("invalid events type %q: must be none or nats", cfg.Type)
	}
}

// newWithDependencies wires every component around the given dependencies
// (useful for testing)
func newWithDependencies(cfg config.Config, store storage.Storage, publisher events.Publisher, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	srv := server.New(cfg.Server, logger)
	reg := registry.New(srv, logger)
	authService := auth.New(store, clk, rnd, cfg.Auth, logger)
	feed := sse.NewHub(logger)
	go feed.Run()
	starter := match.NewStarter(reg, store, events.Multi(publisher, feed), clk, logger)
	challenges := challenge.New(reg, starter, clk, cfg.Challenge, logger)
	queue := matchmaking.New(reg, store, starter, clk, cfg.Matchmaking, logger)
	starter.OnStart(challenges.MatchStarted)
	starter.OnStart(queue.MatchStarted)
	sessions := handler.NewSessions(authService, reg, challenges, queue, logger)

	srv.RegisterHandler(handler.NewAuthHandler(authService, reg, sessions, logger))
	srv.RegisterHandler(handler.NewPlayerListHandler(reg, sessions, logger))
	srv.RegisterHandler(handler.NewChallengeHandler(challenges, sessions, logger))
	srv.RegisterHandler(handler.NewMatchmakingHandler(queue, reg, sessions, logger))
	srv.OnDisconnect(sessions.Disconnected)

	return &App{
		Storage:     store,
		Publisher:   publisher,
		Feed:        feed,
		Clock:       clk,
		Random:      rnd,
		Server:      srv,
		Registry:    reg,
		AuthService: authService,
		Starter:     starter,
		Challenges:  challenges,
		Queue:       queue,
		Sessions:    sessions,
		Stats:       stats.NewCollector(srv, reg, challenges, queue, store, clk),
		cfg:         cfg,
		logger:      logger,
	}
}

// Start opens the game port and launches the background loops. They stop
// when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return err
	}

	go a.Challenges.Run(ctx)
	go a.Queue.Run(ctx)
	go a.Stats.Report(ctx, a.cfg.StatsInterval, a.logger)
	go a.sweepSessions(ctx)
	return nil
}

func (a *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.AuthService.CleanExpiredSessions(); n > 0 {
				a.logger.Info("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

// Close stops the game server and releases storage and event connections
func (a *App) Close() error {
	a.Server.Stop()
	errs := []error{a.Feed.Close(), a.Publisher.Close()}
	if c, ok := a.Storage.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func closeStorage(store storage.Storage) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}
