package responder

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"chartmentor/internal/analysis"
	"chartmentor/internal/knowledge"
)

// Bucket is the classification outcome of one utterance.
type Bucket string

const (
	BucketGreeting Bucket = "greeting"
	BucketAnalysis Bucket = "analysis"
	BucketPattern  Bucket = "pattern"
	BucketRisk     Bucket = "risk"
	BucketTrading  Bucket = "trading"
	BucketFallback Bucket = "fallback"
)

// FallbackKind refines BucketFallback.
type FallbackKind string

const (
	FallbackNone       FallbackKind = ""
	FallbackDisclaimer FallbackKind = "disclaimer"
	FallbackOnboarding FallbackKind = "onboarding"
	FallbackTimeframe  FallbackKind = "timeframe"
	FallbackUnknown    FallbackKind = "unknown"
)

// Classification is the pure result of Classify.
type Classification struct {
	Bucket   Bucket
	Entry    knowledge.Entry // matched entry for pattern, risk and trading buckets
	Fallback FallbackKind
}

var (
	greetingPhrases = []string{"hello", "good morning", "good afternoon", "good evening"}
	greetingWords   = []string{"hi", "hey"}
	analysisPhrases = []string{"analysis", "result", "pattern detected", "what do you think", "explain this"}
)

type fallbackRule struct {
	kind  FallbackKind
	words []string
	reply string
}

var fallbackRules = []fallbackRule{
	{
		kind:  FallbackDisclaimer,
		words: []string{"buy", "sell", "trade", "entry", "exit"},
		reply: "I can provide educational information about trading concepts, but I cannot give specific buy/sell advice. Always do your own research and consider your risk tolerance!",
	},
	{
		kind:  FallbackOnboarding,
		words: []string{"learn", "education", "beginner", "start"},
		reply: "Great! Start with understanding basic candlestick patterns like Doji, Hammer, and Engulfing. Then learn about support/resistance and risk management. Would you like me to explain any of these concepts?",
	},
	{
		kind:  FallbackTimeframe,
		words: []string{"timeframe", "chart", "analysis"},
		reply: "For pattern analysis, I recommend starting with 4-hour and daily charts as they're more reliable. 1-minute and 5-minute charts can be noisy. What timeframe are you most interested in trading?",
	},
}

// Normalize lowercases and trims an utterance. Classification only ever sees
// normalized text.
func Normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}

// Classify decides which bucket answers the utterance. It depends only on its
// arguments and the knowledge base; the first matching step wins.
func Classify(kb *knowledge.Base, utterance string, result *analysis.Result) Classification {
	text := Normalize(utterance)

	if containsAny(text, greetingPhrases) || containsWord(text, greetingWords) {
		return Classification{Bucket: BucketGreeting}
	}
	if result.Usable() && containsAny(text, analysisPhrases) {
		return Classification{Bucket: BucketAnalysis}
	}
	if e, ok := kb.Patterns.FirstMatch(text); ok {
		return Classification{Bucket: BucketPattern, Entry: e}
	}
	if e, ok := kb.RiskConcepts.FirstMatch(text); ok {
		return Classification{Bucket: BucketRisk, Entry: e}
	}
	if e, ok := kb.TradingTerms.FirstMatch(text); ok {
		return Classification{Bucket: BucketTrading, Entry: e}
	}

	tokens := strings.Fields(text)
	for _, rule := range fallbackRules {
		if hasToken(tokens, rule.words) {
			return Classification{Bucket: BucketFallback, Fallback: rule.kind}
		}
	}
	return Classification{Bucket: BucketFallback, Fallback: FallbackUnknown}
}

func fallbackReply(kind FallbackKind) string {
	for _, rule := range fallbackRules {
		if rule.kind == kind {
			return rule.reply
		}
	}
	return ""
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// containsWord matches phrases on word boundaries; short greetings such as
// "hi" hide inside ordinary words ("think", "this", "they").
func containsWord(text string, phrases []string) bool {
	for _, p := range phrases {
		for from := 0; from <= len(text)-len(p); {
			idx := strings.Index(text[from:], p)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(p)
			if boundaryBefore(text, start) && boundaryAfter(text, end) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func hasToken(tokens, words []string) bool {
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}
