package storage

import (
	"context"

	"github.com/mcoot/battleship-server/internal/model"
)

// Storage defines the interface for data persistence.
// Create methods assign the record's ID; zero is never a valid ID.
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Match operations
	CreateMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	CountMatches(ctx context.Context) (int64, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
