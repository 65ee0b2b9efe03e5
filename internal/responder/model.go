package responder

import (
	"context"
	"strings"

	"chartmentor/internal/gateway/provider"
	"chartmentor/internal/logger"
)

const modelSystemPrompt = `You are a trading-education assistant on a candlestick-pattern learning page.
Answer briefly and in plain language. Explain concepts; never give personal buy or sell advice.
If the question is unrelated to trading education, say so in one sentence.`

const modelMaxTokens = 400

// askModel consults the configured chat model. ok is false whenever the
// caller should use the unknown-topic templates instead.
func (r *Responder) askModel(ctx context.Context, question string) (string, bool) {
	if r.model == nil || strings.TrimSpace(question) == "" {
		return "", false
	}
	if r.breaker != nil && !r.breaker.Allow() {
		logger.Debugf("model %s skipped: circuit open", r.model.ID())
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.modelTimeout)
		defer cancel()
	}
	answer, err := r.model.Call(ctx, provider.ChatPayload{
		System:    modelSystemPrompt,
		User:      question,
		MaxTokens: modelMaxTokens,
	})
	answer = strings.TrimSpace(answer)
	if err == nil && answer == "" {
		err = provider.ErrEmptyAnswer
	}
	if err != nil {
		if r.breaker != nil {
			r.breaker.RecordFailure()
		}
		logger.Warnf("model %s failed, using unknown template: %v", r.model.ID(), err)
		return "", false
	}
	if r.breaker != nil {
		r.breaker.RecordSuccess()
	}
	return answer, true
}
