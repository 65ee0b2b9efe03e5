package chathttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chartmentor/internal/analysis"
	"chartmentor/internal/knowledge"
	"chartmentor/internal/responder"
	"chartmentor/internal/session"
	"chartmentor/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type firstPicker struct{}

func (firstPicker) Intn(int) int { return 0 }

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Record(ctx context.Context, rec store.ExchangeRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockAudit) Recent(ctx context.Context, sessionID string, limit int) ([]store.ExchangeRecord, error) {
	args := m.Called(ctx, sessionID, limit)
	recs, _ := args.Get(0).([]store.ExchangeRecord)
	return recs, args.Error(1)
}

func (m *mockAudit) Close() error { return nil }

func newTestServer(t *testing.T, audit store.ExchangeLog) (*Server, *session.Manager) {
	t.Helper()
	kb := knowledge.Default()
	mgr := session.NewManager(func() *responder.Responder {
		return responder.New(kb, responder.WithPicker(firstPicker{}))
	}, 0)
	cfg := ServerConfig{Sessions: mgr, Knowledge: kb, MaxMessageLen: 50}
	if audit != nil {
		cfg.Audit = audit
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return srv, mgr
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestNewServerRequiresSessions(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestCreateSessionAndMessage(t *testing.T) {
	srv, mgr := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/chat/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["session_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, mgr.Len())

	w = do(t, h, http.MethodPost, "/api/chat/sessions/"+id+"/messages", `{"message":"What is a Doji?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "pattern", body["bucket"])
	assert.Equal(t, "doji", body["topic"])
	assert.Equal(t, id, body["session_id"])

	w = do(t, h, http.MethodGet, "/api/chat/sessions/"+id+"/transcript", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries, _ := decode(t, w)["entries"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "what is a doji?", first["content"])
}

func TestMessageCreatesUnknownSession(t *testing.T) {
	srv, mgr := newTestServer(t, nil)
	w := do(t, srv.Handler(), http.MethodPost, "/api/chat/sessions/abc/messages", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "greeting", decode(t, w)["bucket"])
	_, ok := mgr.Get("abc")
	assert.True(t, ok)
}

func TestMessageValidation(t *testing.T) {
	srv, mgr := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/chat/sessions/x/messages", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/chat/sessions/x/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/chat/sessions/x/messages", `{"message":"`+strings.Repeat("a", 51)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Equal(t, 0, mgr.Len())
}

func TestMessageWithAnalysis(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	body := `{"message":"what do you think","analysis":{"pattern":"Hammer","confidence":92,"signal":"BUY","stopLoss":"41200","takeProfit":"44800","riskReward":"1:2.5"}}`

	w := do(t, h, http.MethodPost, "/api/chat/sessions/s1/messages", body)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "analysis", got["bucket"])
	reply, _ := got["reply"].(string)
	assert.True(t, strings.HasPrefix(reply, "Based on your uploaded chart, I detected a Hammer pattern with 92% confidence."))
	assert.Contains(t, reply, "Recommended stop loss: 41200")

	// analysis stays attached to the session
	w = do(t, h, http.MethodPost, "/api/chat/sessions/s1/messages", `{"message":"explain this"}`)
	assert.Equal(t, "analysis", decode(t, w)["bucket"])

	w = do(t, h, http.MethodDelete, "/api/chat/sessions/s1/analysis", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, "/api/chat/sessions/s1/messages", `{"message":"explain this"}`)
	assert.NotEqual(t, "analysis", decode(t, w)["bucket"])
}

func TestMessageIgnoresPatternlessAnalysis(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv.Handler(), http.MethodPost, "/api/chat/sessions/s2/messages", `{"message":"what do you think","analysis":{"confidence":50}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fallback", decode(t, w)["bucket"])
}

func TestMessagePanicReturnsApology(t *testing.T) {
	mgr := session.NewManager(func() *responder.Responder { return nil }, 0)
	srv, err := NewServer(ServerConfig{Sessions: mgr})
	require.NoError(t, err)

	w := do(t, srv.Handler(), http.MethodPost, "/api/chat/sessions/p/messages", `{"message":"hello"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Apology, decode(t, w)["reply"])
}

func TestSetAnalysisFromCandles(t *testing.T) {
	srv, mgr := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodPut, "/api/chat/sessions/c1/analysis", `{"candles":[{"open":100,"high":105,"low":95,"close":100.2}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	s, ok := mgr.Get("c1")
	require.True(t, ok)
	require.NotNil(t, s.Analysis())
	assert.Equal(t, "Doji", s.Analysis().Pattern)

	w = do(t, h, http.MethodPut, "/api/chat/sessions/c1/analysis", `{"candles":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodDelete, "/api/chat/sessions/missing/analysis", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetect(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/analysis/detect", `{"candles":[{"open":100,"high":105,"low":95,"close":100.2}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res analysis.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Doji", res.Pattern)
	assert.Equal(t, "WAIT", res.Signal.String())
	assert.Equal(t, "95.00", res.StopLoss.String())

	w = do(t, h, http.MethodPost, "/api/analysis/detect", `{"candles":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTopics(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/api/chat/topics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var topics map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &topics))
	assert.Equal(t, "doji", topics["patterns"][0])
	assert.Contains(t, topics["risk_concepts"], "stop loss")
}

func TestHistory(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/api/chat/history/x", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	audit := new(mockAudit)
	audit.On("Record", mock.Anything, mock.MatchedBy(func(rec store.ExchangeRecord) bool {
		return rec.SessionID == "h1" && rec.Bucket == "risk" && rec.Topic == "stop loss"
	})).Return(nil).Once()
	audit.On("Recent", mock.Anything, "h1", 10).
		Return([]store.ExchangeRecord{{SessionID: "h1", Bucket: "risk"}}, nil).Once()

	srv, _ = newTestServer(t, audit)
	h := srv.Handler()
	w = do(t, h, http.MethodPost, "/api/chat/sessions/h1/messages", `{"message":"where do I put a stop loss"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/chat/history/h1?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	records, _ := decode(t, w)["records"].([]any)
	assert.Len(t, records, 1)
	audit.AssertExpectations(t)
}
