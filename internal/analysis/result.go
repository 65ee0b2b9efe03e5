package analysis

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("analysis: invalid JSON")

// Value is a field the chat echoes verbatim. JSON numbers keep their literal
// text and JSON strings keep their content.
type Value string

// Number formats f the way it would print in a chat reply (no trailing zeros).
func Number(f float64) Value {
	return Value(strconv.FormatFloat(f, 'f', -1, 64))
}

func (v Value) String() string { return string(v) }

func (v *Value) UnmarshalJSON(b []byte) error {
	*v = valueOf(gjson.ParseBytes(b))
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(v))
	if s != "" && gjson.Valid(s) && gjson.Parse(s).Type == gjson.Number {
		return []byte(s), nil
	}
	return json.Marshal(string(v))
}

func valueOf(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return Value(r.Str)
	default:
		return Value(strings.TrimSpace(r.Raw))
	}
}

// Result is the output of a chart-pattern detector as consumed by the chat.
type Result struct {
	Pattern    string  `json:"pattern"`
	Confidence float64 `json:"confidence"`
	Signal     Value   `json:"signal"`
	StopLoss   Value   `json:"stopLoss"`
	TakeProfit Value   `json:"takeProfit"`
	RiskReward Value   `json:"riskReward"`
}

// Usable reports whether r can drive an analysis follow-up. A nil result or
// one without a pattern name counts as absent.
func (r *Result) Usable() bool {
	return r != nil && strings.TrimSpace(r.Pattern) != ""
}

// ConfidenceText renders the confidence as it appears in replies ("92", "87.5").
func (r Result) ConfidenceText() string {
	return strconv.FormatFloat(r.Confidence, 'f', -1, 64)
}

// UnmarshalJSON accepts both camelCase and snake_case field names, and numbers
// or numeric strings for confidence.
func (r *Result) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return errInvalidJSON
	}
	doc := gjson.ParseBytes(b)
	if doc.Type == gjson.Null {
		*r = Result{}
		return nil
	}
	*r = Result{
		Pattern:    strings.TrimSpace(first(doc, "pattern", "pattern_name", "patternName").String()),
		Confidence: first(doc, "confidence").Float(),
		Signal:     valueOf(first(doc, "signal")),
		StopLoss:   valueOf(first(doc, "stopLoss", "stop_loss")),
		TakeProfit: valueOf(first(doc, "takeProfit", "take_profit")),
		RiskReward: valueOf(first(doc, "riskReward", "risk_reward")),
	}
	return nil
}

func first(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
