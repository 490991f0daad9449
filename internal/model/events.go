package model

import "time"

// EventType identifies the type of event
type EventType string

const EventMatchCreated EventType = "match_created"

// Event is the envelope published to external consumers
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    UserID    `json:"user_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// MatchCreatedPayload contains data for match created events
type MatchCreatedPayload struct {
	Match Match `json:"match"`
}
