package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultDecodeKeepsLiterals(t *testing.T) {
	var r Result
	err := json.Unmarshal([]byte(`{"pattern":" Hammer ","confidence":92,"signal":"BUY","stopLoss":95,"takeProfit":110.50,"riskReward":"1:3"}`), &r)
	require.NoError(t, err)
	assert.Equal(t, Result{
		Pattern:    "Hammer",
		Confidence: 92,
		Signal:     "BUY",
		StopLoss:   "95",
		TakeProfit: "110.50",
		RiskReward: "1:3",
	}, r)
	assert.Equal(t, "92", r.ConfidenceText())
}

func TestResultDecodeSnakeCaseAndStringConfidence(t *testing.T) {
	var r Result
	err := json.Unmarshal([]byte(`{"pattern_name":"Doji","confidence":"75.5","stop_loss":"97.2","take_profit":null,"risk_reward":2}`), &r)
	require.NoError(t, err)
	assert.Equal(t, "Doji", r.Pattern)
	assert.Equal(t, 75.5, r.Confidence)
	assert.Equal(t, "75.5", r.ConfidenceText())
	assert.Equal(t, Value("97.2"), r.StopLoss)
	assert.Equal(t, Value(""), r.TakeProfit)
	assert.Equal(t, Value("2"), r.RiskReward)
}

func TestResultEncodeRestoresNumbers(t *testing.T) {
	out, err := json.Marshal(Result{Pattern: "Hammer", Confidence: 92, Signal: "BUY", StopLoss: Number(95), TakeProfit: "110.50", RiskReward: "1:3"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"Hammer","confidence":92,"signal":"BUY","stopLoss":95,"takeProfit":110.50,"riskReward":"1:3"}`, string(out))
}

func TestUsable(t *testing.T) {
	var nilResult *Result
	assert.False(t, nilResult.Usable())
	assert.False(t, (&Result{Confidence: 90}).Usable())
	assert.True(t, (&Result{Pattern: "Doji"}).Usable())
}
