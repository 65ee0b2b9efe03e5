package store

import (
	"context"
	"time"
)

// ExchangeRecord is one answered chat turn.
type ExchangeRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Bucket    string    `json:"bucket"`
	Topic     string    `json:"topic,omitempty"`
	FromModel bool      `json:"from_model,omitempty"`
	Utterance string    `json:"utterance"`
	Reply     string    `json:"reply"`
	Analysis  []byte    `json:"analysis,omitempty"` // JSON snapshot of the attached analysis
	CreatedAt time.Time `json:"created_at"`
}

// ExchangeLog persists answered turns for later review.
type ExchangeLog interface {
	Record(ctx context.Context, rec ExchangeRecord) error
	// Recent returns up to limit records of a session, newest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]ExchangeRecord, error)
	Close() error
}
