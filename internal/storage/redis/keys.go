package redis

import (
	"fmt"

	"github.com/mcoot/battleship-server/internal/model"
)

// Key prefix for all server data
const keyPrefix = "bship"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%d", keyPrefix, id)
}

// matchCountKey counts every match ever created
func matchCountKey() string {
	return fmt.Sprintf("%s:count:matches", keyPrefix)
}

// userSeqKey and matchSeqKey hold the last assigned IDs
func userSeqKey() string {
	return fmt.Sprintf("%s:seq:user", keyPrefix)
}

func matchSeqKey() string {
	return fmt.Sprintf("%s:seq:match", keyPrefix)
}
