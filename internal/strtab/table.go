package strtab

import (
	"fmt"
	"strings"
	"sync"
)

// ID identifies an interned string within one Table.
type ID int32

// Invalid is never issued by a Table.
const Invalid ID = -1

// Well-known IDs. New interns these first, in this order.
const (
	Empty ID = iota
	True
	False
	None
	Caller
	Args
	Succeeded
)

var wellKnown = []string{
	Empty:     "",
	True:      "true",
	False:     "false",
	None:      "<none>",
	Caller:    "_caller",
	Args:      "_args",
	Succeeded: "succeeded",
}

// Table is an append-only string interning table.
//
// Thread-safety: all methods are safe for concurrent use. Interning takes the
// write lock only when the string is new.
type Table struct {
	mu    sync.RWMutex
	ids   map[string]ID
	names []string
}

// New creates a table with the well-known names pre-interned.
func New() *Table {
	t := &Table{
		ids:   make(map[string]ID, 64),
		names: make([]string, 0, 64),
	}
	for _, s := range wellKnown {
		t.Intern(s)
	}
	return t
}

// Intern returns the ID for s, assigning a new one if s was never seen.
func (t *Table) Intern(s string) ID {
	t.mu.RLock()
	id, ok := t.ids[s]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-check: another goroutine may have interned s between the locks.
	if id, ok := t.ids[s]; ok {
		return id
	}
	id = ID(len(t.names))
	t.names = append(t.names, s)
	t.ids[s] = id
	return id
}

// InternBytes is Intern for a byte slice. The bytes are copied.
func (t *Table) InternBytes(b []byte) ID {
	return t.Intern(string(b))
}

// Lookup returns the ID for s without interning it.
func (t *Table) Lookup(s string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[s]
	return id, ok
}

// Resolve returns the string for id.
// Panics if id was not issued by this table.
func (t *Table) Resolve(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.names) {
		panic(fmt.Sprintf("strtab: id %d not issued by this table", id))
	}
	return t.names[id]
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// SplitDotted interns each component of a dotted name such as "a.b.c".
// Empty components ("a..b", ".a", "") are rejected.
func (t *Table) SplitDotted(name string) ([]ID, error) {
	if name == "" {
		return nil, fmt.Errorf("empty name")
	}
	parts := strings.Split(name, ".")
	ids := make([]ID, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("name %q: empty component at position %d", name, i)
		}
		ids[i] = t.Intern(p)
	}
	return ids, nil
}

// JoinDotted renders ids back into dotted form. Used for diagnostics.
func (t *Table) JoinDotted(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = t.Resolve(id)
	}
	return strings.Join(parts, ".")
}
