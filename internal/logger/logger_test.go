package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetLevel("warn")
	defer SetLevel("info")

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "app=chartmentor")
}

func TestInfoBlockSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetLevel("info")

	InfoBlock("\nfirst\nsecond\n")
	assert.Equal(t, 2, strings.Count(buf.String(), "level=INFO"))
}

func TestModelLog(t *testing.T) {
	var buf bytes.Buffer
	SetModelWriter(&buf)
	defer SetModelWriter(nil)

	EnableModelPayloadDump(false)
	LogModelRequest("gpt", "sys", "what is fibonacci", `{"raw":true}`)
	assert.Contains(t, buf.String(), "[MODEL][request][gpt]")
	assert.Contains(t, buf.String(), "what is fibonacci")
	assert.NotContains(t, buf.String(), "PAYLOAD")

	buf.Reset()
	EnableModelPayloadDump(true)
	defer EnableModelPayloadDump(false)
	LogModelRequest("gpt", "sys", "q", `{"raw":true}`)
	assert.Contains(t, buf.String(), "--- PAYLOAD ---")

	buf.Reset()
	LogModelResponse("gpt", "answer")
	assert.Contains(t, buf.String(), "[response]")

	SetModelWriter(nil)
	buf.Reset()
	LogModelResponse("gpt", "dropped")
	assert.Empty(t, buf.String())
}
