package models

import "time"

// InboundMessage is the payload a live connection (or the ingest topic)
// yields for one chat message.
type InboundMessage struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// ChatMessage is the persisted, analysis-enriched chat record that gets
// broadcast to room members.
type ChatMessage struct {
	MessageID         string         `json:"message_id"`
	RoomID            string         `json:"room_id"`
	UserID            string         `json:"user_id"`
	Text              string         `json:"text"`
	Sentiment         SentimentLabel `json:"sentiment"`
	CrisisProbability float64        `json:"crisis_probability"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ErrorEvent is sent to a single connection, never broadcast.
type ErrorEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

const RateLimitCode = "RATE_LIMIT"

func NewRateLimitEvent() ErrorEvent {
	return ErrorEvent{Type: "error", Code: RateLimitCode}
}
