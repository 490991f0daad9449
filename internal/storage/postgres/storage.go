// Package postgres stores users and matches in PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/storage"
)

const uniqueViolation = "23505"

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool *pgxpool.Pool
}

// New connects a pool, verifies it and optionally applies migrations
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.AutoMigrate {
		if err := Migrate(cfg.DSN, logger); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// NewWithPool wraps an existing pool (for testing)
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close releases all pooled connections
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, display_name, elo_rating, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		user.Username, user.PasswordHash, user.DisplayName, user.EloRating, user.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrUsernameTaken
		}
		return err
	}

	user.ID = model.UserID(id)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, display_name, elo_rating, created_at
		 FROM users WHERE id = $1`, int64(id))
	return scanUser(row)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, display_name, elo_rating, created_at
		 FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user model.User
		id   int64
	)
	err := row.Scan(&id, &user.Username, &user.PasswordHash, &user.DisplayName, &user.EloRating, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	user.ID = model.UserID(id)
	return &user, nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now()
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO matches (player1_id, player2_id, time_limit, random_placement, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		int64(match.Player1ID), int64(match.Player2ID), int64(match.TimeLimit),
		match.RandomPlacement, string(match.Source), match.CreatedAt,
	).Scan(&id)
	if err != nil {
		return err
	}

	match.ID = model.MatchID(id)
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var (
		match           model.Match
		matchID, p1, p2 int64
		timeLimit       int64
		source          string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, player1_id, player2_id, time_limit, random_placement, source, created_at
		 FROM matches WHERE id = $1`, int64(id),
	).Scan(&matchID, &p1, &p2, &timeLimit, &match.RandomPlacement, &source, &match.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	match.ID = model.MatchID(matchID)
	match.Player1ID = model.UserID(p1)
	match.Player2ID = model.UserID(p2)
	match.TimeLimit = uint32(timeLimit)
	match.Source = model.MatchSource(source)
	return &match, nil
}

func (s *Storage) CountMatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
