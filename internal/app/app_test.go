package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	chcfg "chartmentor/internal/config"
	"chartmentor/internal/gateway/provider"
	"chartmentor/internal/responder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct{ answer string }

func (s stubModel) ID() string { return "stub" }

func (s stubModel) Call(context.Context, provider.ChatPayload) (string, error) {
	return s.answer, nil
}

func TestBuildWithDefaults(t *testing.T) {
	cfg := chcfg.Default()
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.http)
	assert.Nil(t, a.audit)
	assert.Equal(t, "disabled", a.Summary.Model)
	assert.Contains(t, a.Summary.String(), "doji")

	s := a.Sessions().Create()
	reply := s.Responder().Answer(context.Background(), "What is a hammer?", nil)
	assert.Equal(t, responder.BucketPattern, reply.Bucket)
}

func TestBuildWiresModelFallback(t *testing.T) {
	cfg := chcfg.Default()
	a, err := NewAppBuilder(cfg, WithModelProvider(func(chcfg.ModelConfig) provider.ModelProvider {
		return stubModel{answer: "Fibonacci levels mark common retracement zones."}
	})).Build(context.Background())
	require.NoError(t, err)

	s := a.Sessions().Create()
	reply := s.Responder().Answer(context.Background(), "fibonacci?", nil)
	assert.True(t, reply.FromModel)
	assert.Equal(t, "Fibonacci levels mark common retracement zones.", reply.Text)
}

func TestBuildWithAuditStore(t *testing.T) {
	cfg := chcfg.Default()
	cfg.Audit.Path = filepath.Join(t.TempDir(), "chat.db")
	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.audit)
	a.Close()
	assert.Nil(t, a.audit)
}

func TestBuildFailsOnBadKnowledge(t *testing.T) {
	cfg := chcfg.Default()
	cfg.Chat.KnowledgePath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewAppBuilder(cfg).Build(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := chcfg.Default()
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.Chat.SweepInterval = 10 * time.Millisecond
	a, err := NewApp(cfg)
	require.NoError(t, err)
	a.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestServerHandlesMessages(t *testing.T) {
	a, err := NewAppBuilder(chcfg.Default()).Build(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions/t1/messages", strings.NewReader(`{"message":"good morning"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.http.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bucket":"greeting"`)
}
