package chathttp

import (
	"encoding/json"

	"chartmentor/internal/analysis"
)

// Apology is returned, with status 200, whenever the host fails while
// producing a reply.
const Apology = "Sorry, I'm having trouble processing your message. Please try again!"

type messageRequest struct {
	Message  string          `json:"message"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
}

type messageResponse struct {
	Reply     string `json:"reply"`
	Bucket    string `json:"bucket"`
	Topic     string `json:"topic,omitempty"`
	FromModel bool   `json:"from_model,omitempty"`
	SessionID string `json:"session_id"`
}

type analysisRequest struct {
	Analysis *analysis.Result  `json:"analysis,omitempty"`
	Candles  []analysis.Candle `json:"candles,omitempty"`
}

type detectRequest struct {
	Candles []analysis.Candle `json:"candles"`
}
