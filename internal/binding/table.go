// Package binding holds the credential to agent association. A binding
// outlives the connection that created it and is only ever replaced by a
// later successful authentication with the same credential.
package binding

import (
	"sort"
	"sync"
	"time"
)

type Binding struct {
	Credential string
	AgentID    string
	BoundAt    time.Time
}

type Table struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

func NewTable() *Table {
	return &Table{
		bindings: make(map[string]Binding),
	}
}

// Bind upserts credential -> agentID and returns the previous agent id, if any.
func (t *Table) Bind(credential, agentID string, at time.Time) (previous string, replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.bindings[credential]; ok {
		previous, replaced = old.AgentID, true
	}
	t.bindings[credential] = Binding{
		Credential: credential,
		AgentID:    agentID,
		BoundAt:    at,
	}
	return previous, replaced
}

func (t *Table) Lookup(credential string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.bindings[credential]
	return b.AgentID, ok
}

// Has reports whether credential is a key of the table.
func (t *Table) Has(credential string) bool {
	_, ok := t.Lookup(credential)
	return ok
}

// List returns every binding ordered by credential.
func (t *Table) List() []Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Binding, 0, len(t.bindings))
	for _, b := range t.bindings {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Credential < result[j].Credential
	})
	return result
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}
