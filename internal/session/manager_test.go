package session

import (
	"context"
	"testing"
	"time"

	"chartmentor/internal/analysis"
	"chartmentor/internal/responder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(ttl time.Duration) (*Manager, *clock) {
	c := &clock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	m := NewManager(nil, ttl)
	m.now = c.now
	return m, c
}

func TestCreateAndGet(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Create()
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestEnsureCreatesOnce(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	a, created := m.Ensure("visitor-1")
	assert.True(t, created)
	b, created := m.Ensure("visitor-1")
	assert.False(t, created)
	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Len())
}

func TestSessionsHaveSeparateTranscripts(t *testing.T) {
	m, _ := newTestManager(0)
	a := m.Create()
	b := m.Create()
	a.Responder().Respond("doji", nil)

	assert.Equal(t, 2, a.Responder().Transcript().Len())
	assert.Equal(t, 0, b.Responder().Transcript().Len())
}

func TestAnalysisIsCopied(t *testing.T) {
	m, _ := newTestManager(0)
	s := m.Create()
	assert.Nil(t, s.Analysis())

	res := &analysis.Result{Pattern: "Doji", Confidence: 70}
	s.SetAnalysis(res)
	res.Pattern = "changed"
	assert.Equal(t, "Doji", s.Analysis().Pattern)

	s.SetAnalysis(nil)
	assert.Nil(t, s.Analysis())
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	m, c := newTestManager(30 * time.Minute)
	old := m.Create()
	c.t = c.t.Add(20 * time.Minute)
	fresh := m.Create()
	c.t = c.t.Add(15 * time.Minute)

	assert.Equal(t, 1, m.Sweep())
	_, ok := m.Get(old.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	m, c := newTestManager(0)
	m.Create()
	c.t = c.t.Add(24 * time.Hour)
	assert.Zero(t, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestDelete(t *testing.T) {
	m, _ := newTestManager(0)
	s := m.Create()
	assert.True(t, m.Delete(s.ID))
	assert.False(t, m.Delete(s.ID))
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewManager(func() *responder.Responder { return responder.New(nil) }, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
