// Package transcript records chat turns in the order they happened. Entries
// are never removed or rewritten.
package transcript

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Entry struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Transcript is an append-only log safe for concurrent use.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

func New() *Transcript {
	return &Transcript{now: time.Now}
}

// Append records one turn and returns its position.
func (t *Transcript) Append(role Role, content string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	t.entries = append(t.entries, Entry{Role: role, Content: content, At: now()})
	return len(t.entries) - 1
}

// Entries returns a snapshot copy.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Last returns the most recent entry.
func (t *Transcript) Last() (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}
