package knowledge

import "strings"

// Entry is one explanation in a knowledge table. Tip, when set, is the fixed
// suffix appended after the explanation (a trading tip or a worked example).
type Entry struct {
	Key  string `yaml:"key" json:"key"`
	Text string `yaml:"text" json:"text"`
	Tip  string `yaml:"tip,omitempty" json:"tip,omitempty"`
}

// Table is an immutable, ordered keyword table. Iteration follows the order
// entries were defined in, which decides ties between several matching keys.
type Table struct {
	name    string
	entries []Entry
	index   map[string]int
}

func newTable(name string, entries []Entry) Table {
	t := Table{
		name:    name,
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		e.Key = normalizeKey(e.Key)
		e.Text = strings.TrimSpace(e.Text)
		e.Tip = strings.TrimSpace(e.Tip)
		t.entries[i] = e
		t.index[e.Key] = i
	}
	return t
}

func normalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}

// Name returns the table name used in logs and topic listings.
func (t Table) Name() string { return t.name }

// Len returns the number of entries.
func (t Table) Len() int { return len(t.entries) }

// FirstMatch returns the first entry, in definition order, whose key occurs
// anywhere in text. text is expected to be lowercased already.
func (t Table) FirstMatch(text string) (Entry, bool) {
	for _, e := range t.entries {
		if strings.Contains(text, e.Key) {
			return e, true
		}
	}
	return Entry{}, false
}

// Lookup returns the entry with exactly this key (case-insensitive).
func (t Table) Lookup(key string) (Entry, bool) {
	idx, ok := t.index[normalizeKey(key)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[idx], true
}

// Keys returns the keys in definition order.
func (t Table) Keys() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Key
	}
	return out
}

// Entries returns a copy of the entries in definition order.
func (t Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
