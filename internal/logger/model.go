package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	modelMu   sync.Mutex
	modelLog  *log.Logger
	modelDump bool
)

// SetModelWriter directs model fallback exchanges to w; nil disables the dump.
func SetModelWriter(w io.Writer) {
	modelMu.Lock()
	defer modelMu.Unlock()
	if w == nil {
		modelLog = nil
		return
	}
	modelLog = log.New(w, "", log.LstdFlags)
}

// EnableModelPayloadDump toggles raw request bodies in the model dump.
func EnableModelPayloadDump(enabled bool) {
	modelMu.Lock()
	modelDump = enabled
	modelMu.Unlock()
}

type modelSection struct {
	Title string
	Body  string
}

func writeModel(kind, provider string, sections []modelSection) {
	modelMu.Lock()
	l := modelLog
	modelMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[MODEL]")
	for _, tag := range []string{kind, provider} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogModelRequest(provider, systemPrompt, userPrompt, payload string) {
	sections := []modelSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	modelMu.Lock()
	dump := modelDump
	modelMu.Unlock()
	if dump && strings.TrimSpace(payload) != "" {
		sections = append(sections, modelSection{Title: "PAYLOAD", Body: payload})
	}
	writeModel("request", provider, sections)
}

func LogModelResponse(provider, raw string) {
	writeModel("response", provider, []modelSection{{Title: "RAW", Body: raw}})
}
