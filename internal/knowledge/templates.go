package knowledge

// TemplateKind names one of the alternative-phrasing lists.
type TemplateKind string

const (
	TemplateGreeting      TemplateKind = "greeting"
	TemplateUnknown       TemplateKind = "unknown"
	TemplateEncouragement TemplateKind = "encouragement"
)

// Templates holds the alternative phrasings per kind. Every list is non-empty
// once loaded.
type Templates struct {
	Greeting      []string `yaml:"greeting" json:"greeting"`
	Unknown       []string `yaml:"unknown" json:"unknown"`
	Encouragement []string `yaml:"encouragement" json:"encouragement"`
}

// Phrases returns the list for kind, or nil for an unknown kind.
func (t Templates) Phrases(kind TemplateKind) []string {
	switch kind {
	case TemplateGreeting:
		return t.Greeting
	case TemplateUnknown:
		return t.Unknown
	case TemplateEncouragement:
		return t.Encouragement
	default:
		return nil
	}
}

// Pick returns the phrase at index intn(len) of the kind's list. intn follows
// the math/rand Intn contract.
func (t Templates) Pick(kind TemplateKind, intn func(n int) int) string {
	phrases := t.Phrases(kind)
	if len(phrases) == 0 {
		return ""
	}
	idx := 0
	if intn != nil && len(phrases) > 1 {
		idx = intn(len(phrases))
	}
	if idx < 0 || idx >= len(phrases) {
		idx = 0
	}
	return phrases[idx]
}

// Contains reports whether s is one of the kind's phrases.
func (t Templates) Contains(kind TemplateKind, s string) bool {
	for _, p := range t.Phrases(kind) {
		if p == s {
			return true
		}
	}
	return false
}

func (t Templates) clone() Templates {
	return Templates{
		Greeting:      append([]string(nil), t.Greeting...),
		Unknown:       append([]string(nil), t.Unknown...),
		Encouragement: append([]string(nil), t.Encouragement...),
	}
}
