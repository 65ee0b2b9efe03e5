// Package responder answers free-text trading-education questions from the
// static knowledge base, optionally explaining a chart-analysis result.
package responder

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"chartmentor/internal/analysis"
	"chartmentor/internal/gateway/provider"
	"chartmentor/internal/knowledge"
	"chartmentor/internal/pkg/circuit"
	"chartmentor/internal/transcript"
)

// Picker chooses a template index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Reply is a response plus how it was produced.
type Reply struct {
	Text      string       `json:"reply"`
	Bucket    Bucket       `json:"bucket"`
	Topic     string       `json:"topic,omitempty"`
	Fallback  FallbackKind `json:"fallback,omitempty"`
	FromModel bool         `json:"from_model,omitempty"`
}

// Responder owns one conversation: the knowledge base it answers from and
// the transcript of the turns it has seen.
type Responder struct {
	// turnMu keeps each user/assistant pair adjacent in the transcript.
	turnMu sync.Mutex

	kb         *knowledge.Base
	picker     Picker
	transcript *transcript.Transcript

	model        provider.ModelProvider
	modelTimeout time.Duration
	breaker      *circuit.CircuitBreaker
}

type Option func(*Responder)

// WithPicker replaces the random template selection.
func WithPicker(p Picker) Option {
	return func(r *Responder) {
		if p != nil {
			r.picker = p
		}
	}
}

// WithTranscript records turns into t instead of a fresh transcript.
func WithTranscript(t *transcript.Transcript) Option {
	return func(r *Responder) {
		if t != nil {
			r.transcript = t
		}
	}
}

// WithModel lets unmatched questions go to a chat model before falling back
// to the unknown-topic templates. breaker may be nil.
func WithModel(m provider.ModelProvider, timeout time.Duration, breaker *circuit.CircuitBreaker) Option {
	return func(r *Responder) {
		r.model = m
		r.modelTimeout = timeout
		r.breaker = breaker
	}
}

func New(kb *knowledge.Base, opts ...Option) *Responder {
	if kb == nil {
		kb = knowledge.Default()
	}
	r := &Responder{
		kb:         kb,
		picker:     globalRand{},
		transcript: transcript.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transcript exposes the conversation log.
func (r *Responder) Transcript() *transcript.Transcript {
	return r.transcript
}

// Respond answers one utterance. It never fails.
func (r *Responder) Respond(utterance string, result *analysis.Result) string {
	return r.Answer(context.Background(), utterance, result).Text
}

// RespondContext is Respond with a context for the optional model call.
func (r *Responder) RespondContext(ctx context.Context, utterance string, result *analysis.Result) string {
	return r.Answer(ctx, utterance, result).Text
}

// Answer classifies the utterance, composes the reply and records both turns.
func (r *Responder) Answer(ctx context.Context, utterance string, result *analysis.Result) Reply {
	r.turnMu.Lock()
	defer r.turnMu.Unlock()

	text := Normalize(utterance)
	r.transcript.Append(transcript.RoleUser, text)

	c := Classify(r.kb, text, result)
	reply := Reply{Bucket: c.Bucket, Topic: c.Entry.Key, Fallback: c.Fallback}
	switch c.Bucket {
	case BucketGreeting:
		reply.Text = r.kb.Pick(knowledge.TemplateGreeting, r.picker.Intn)
	case BucketAnalysis:
		reply.Text = explainAnalysis(r.kb, result)
	case BucketPattern, BucketRisk:
		reply.Text = withTip(c.Entry)
	case BucketTrading:
		reply.Text = c.Entry.Text
	default:
		if c.Fallback == FallbackUnknown {
			reply.Text, reply.FromModel = r.unknown(ctx, text)
		} else {
			reply.Text = fallbackReply(c.Fallback)
		}
	}

	r.transcript.Append(transcript.RoleAssistant, reply.Text)
	return reply
}

func (r *Responder) unknown(ctx context.Context, question string) (string, bool) {
	if answer, ok := r.askModel(ctx, question); ok {
		return answer, true
	}
	return r.kb.Pick(knowledge.TemplateUnknown, r.picker.Intn), false
}

func withTip(e knowledge.Entry) string {
	if e.Tip == "" {
		return e.Text
	}
	return e.Text + "\n\n" + e.Tip
}

const (
	highConfidenceRemark     = "This is a high-confidence pattern! However, always confirm with other indicators and proper risk management."
	moderateConfidenceRemark = "This is a moderate-confidence pattern. Consider waiting for additional confirmation before entering a trade."
	highConfidenceThreshold  = 80
)

func explainAnalysis(kb *knowledge.Base, res *analysis.Result) string {
	var b strings.Builder
	b.WriteString("Based on your uploaded chart, I detected a ")
	b.WriteString(res.Pattern)
	b.WriteString(" pattern with ")
	b.WriteString(res.ConfidenceText())
	b.WriteString("% confidence. ")
	if text, ok := kb.PatternExplanation(res.Pattern); ok {
		b.WriteString(text)
	}
	b.WriteString("\n\nThe trading signal is: ")
	b.WriteString(res.Signal.String())
	b.WriteString("\nRecommended stop loss: ")
	b.WriteString(res.StopLoss.String())
	b.WriteString("\nTake profit target: ")
	b.WriteString(res.TakeProfit.String())
	b.WriteString("\nRisk-reward ratio: ")
	b.WriteString(res.RiskReward.String())
	b.WriteString("\n\n")
	if res.Confidence > highConfidenceThreshold {
		b.WriteString(highConfidenceRemark)
	} else {
		b.WriteString(moderateConfidenceRemark)
	}
	return b.String()
}
