// Package knowledge holds the static educational tables the responder answers
// from: candlestick patterns, risk-management concepts, trading terms and the
// alternative phrasings for greetings and unknown topics.
package knowledge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultDocument []byte

//go:embed knowledge.schema.json
var documentSchema string

const schemaURL = "knowledge.schema.json"

// Base is the loaded knowledge: three disjoint ordered tables plus the
// response templates. A Base is never mutated after Load returns.
type Base struct {
	Patterns     Table
	RiskConcepts Table
	TradingTerms Table
	templates    Templates
}

type document struct {
	Patterns     []Entry   `yaml:"patterns"`
	RiskConcepts []Entry   `yaml:"risk_concepts"`
	TradingTerms []Entry   `yaml:"trading_terms"`
	Templates    Templates `yaml:"templates"`
}

var (
	defaultOnce sync.Once
	defaultBase *Base
	defaultErr  error

	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Default returns the embedded knowledge base, parsed once per process.
func Default() *Base {
	defaultOnce.Do(func() {
		defaultBase, defaultErr = Load(defaultDocument)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded knowledge document invalid: %v", defaultErr))
	}
	return defaultBase
}

// LoadFile reads an operator-supplied knowledge document. An empty path
// yields the embedded default.
func LoadFile(path string) (*Base, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge document failed: %w", err)
	}
	base, err := Load(raw)
	if err != nil {
		return nil, fmt.Errorf("knowledge document %s: %w", path, err)
	}
	return base, nil
}

// Load parses and validates a YAML knowledge document.
func Load(raw []byte) (*Base, error) {
	if err := validateDocument(raw); err != nil {
		return nil, err
	}
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse knowledge document failed: %w", err)
	}
	base := &Base{
		Patterns:     newTable("patterns", doc.Patterns),
		RiskConcepts: newTable("risk_concepts", doc.RiskConcepts),
		TradingTerms: newTable("trading_terms", doc.TradingTerms),
		templates:    doc.Templates.clone(),
	}
	if err := base.checkKeys(); err != nil {
		return nil, err
	}
	return base, nil
}

func validateDocument(raw []byte) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(documentSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	if schemaErr != nil {
		return fmt.Errorf("compile knowledge schema failed: %w", schemaErr)
	}
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse knowledge document failed: %w", err)
	}
	// the validator expects JSON-shaped values
	js, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("knowledge document is not JSON-compatible: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(js, &normalized); err != nil {
		return err
	}
	if err := compiledSchema.Validate(normalized); err != nil {
		return fmt.Errorf("knowledge document failed schema validation: %w", err)
	}
	return nil
}

// checkKeys rejects duplicate keys within a table and keys shared between
// tables.
func (b *Base) checkKeys() error {
	owner := make(map[string]string)
	for _, t := range b.Tables() {
		seen := make(map[string]bool, t.Len())
		for _, key := range t.Keys() {
			if key == "" {
				return fmt.Errorf("%s contains an empty key", t.Name())
			}
			if seen[key] {
				return fmt.Errorf("%s contains duplicate key %q", t.Name(), key)
			}
			seen[key] = true
			if other, ok := owner[key]; ok {
				return fmt.Errorf("key %q appears in both %s and %s", key, other, t.Name())
			}
			owner[key] = t.Name()
		}
	}
	return nil
}

// Tables returns the three tables in classification priority order.
func (b *Base) Tables() []Table {
	return []Table{b.Patterns, b.RiskConcepts, b.TradingTerms}
}

// Templates returns a copy of the response templates.
func (b *Base) Templates() Templates {
	return b.templates.clone()
}

// Pick selects one phrase of kind using intn.
func (b *Base) Pick(kind TemplateKind, intn func(n int) int) string {
	return b.templates.Pick(kind, intn)
}

// PatternExplanation returns the explanation for a pattern name, matched
// case-insensitively against the pattern keys.
func (b *Base) PatternExplanation(name string) (string, bool) {
	e, ok := b.Patterns.Lookup(name)
	if !ok {
		return "", false
	}
	return e.Text, true
}

// Topics lists the keys of each table by table name.
func (b *Base) Topics() map[string][]string {
	out := make(map[string][]string, 3)
	for _, t := range b.Tables() {
		out[t.Name()] = t.Keys()
	}
	return out
}
