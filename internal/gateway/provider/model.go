package provider

import (
	"context"
	"errors"
)

// ErrEmptyAnswer is returned when a model replies with no content.
var ErrEmptyAnswer = errors.New("model returned empty answer")

type ChatPayload struct {
	System    string
	User      string
	MaxTokens int
}

// ModelProvider is a chat model the responder can fall back to.
type ModelProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}
