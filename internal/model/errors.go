package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")

	// Match errors
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchCreationFailed = errors.New("failed to create match")

	// Registry errors
	ErrPlayerNotOnline  = errors.New("player not online")
	ErrPlayerInGame     = errors.New("player is already in a game")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Challenge errors
	ErrTargetNotOnline       = errors.New("target not online")
	ErrTargetInGame          = errors.New("target is in a game")
	ErrTargetBusy            = errors.New("target is busy")
	ErrTargetNotAvailable    = errors.New("target is not available")
	ErrChallengerUnavailable = errors.New("you must be available to send a challenge")
	ErrSelfChallenge         = errors.New("cannot challenge yourself")
	ErrChallengeNotFound     = errors.New("challenge not found or expired")
	ErrNotChallengeTarget    = errors.New("challenge is not addressed to you")
	ErrChallengeDeclined     = errors.New("challenge declined")
	ErrChallengeExpired      = errors.New("challenge expired")
	ErrChallengeCancelled    = errors.New("challenge cancelled")

	// Queue errors
	ErrAlreadyQueued = errors.New("already in queue")
	ErrNotQueued     = errors.New("not in queue")
)
