package schema

import (
	"encoding/json"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

// RefEntry is one recorded recursive reference.
type RefEntry struct {
	From pointer.Pointer
	To   pointer.Pointer
}

// RecursiveRefMap maps a pointer to the ancestor pointer it recursively
// refers back to. Iteration follows insertion order.
type RecursiveRefMap struct {
	keys    []string
	entries map[string]RefEntry
}

// NewRecursiveRefMap returns an empty map.
func NewRecursiveRefMap() *RecursiveRefMap {
	return &RecursiveRefMap{entries: map[string]RefEntry{}}
}

// Set records from -> to, keeping the original position on overwrite.
func (m *RecursiveRefMap) Set(from, to pointer.Pointer) {
	if m == nil {
		return
	}
	if m.entries == nil {
		m.entries = map[string]RefEntry{}
	}
	key := from.String()
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = RefEntry{From: from.Clone(), To: to.Clone()}
}

// SetIfAbsent records from -> to unless from is already present.
func (m *RecursiveRefMap) SetIfAbsent(from, to pointer.Pointer) {
	if m.Has(from) {
		return
	}
	m.Set(from, to)
}

// Get returns the target recorded for from.
func (m *RecursiveRefMap) Get(from pointer.Pointer) (pointer.Pointer, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.entries[from.String()]
	return e.To, ok
}

// Has reports whether from is recorded.
func (m *RecursiveRefMap) Has(from pointer.Pointer) bool {
	_, ok := m.Get(from)
	return ok
}

// Delete drops the entry for from.
func (m *RecursiveRefMap) Delete(from pointer.Pointer) {
	if m == nil {
		return
	}
	key := from.String()
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m *RecursiveRefMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Entries returns a snapshot in insertion order.
func (m *RecursiveRefMap) Entries() []RefEntry {
	if m == nil {
		return nil
	}
	out := make([]RefEntry, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.entries[k])
	}
	return out
}

// MarshalJSON renders the map as a pointer-string object.
func (m *RecursiveRefMap) MarshalJSON() ([]byte, error) {
	out := map[string]string{}
	for _, e := range m.Entries() {
		out[e.From.String()] = e.To.String()
	}
	return json.Marshal(out)
}

// RemoveRecursiveReferences shortens p by repeatedly replacing any recorded
// recursive source prefix with its ancestor target, until no entry applies.
// Indices beyond the tuple region are genericized along the way.
func RemoveRecursiveReferences(p pointer.Pointer, refs *RecursiveRefMap, arrays pointer.ArrayMap) pointer.Pointer {
	if len(p) == 0 {
		return pointer.Pointer{}
	}
	generic := pointer.ToGeneric(p, arrays)
	if refs.Len() == 0 {
		return generic
	}
	for changed := true; changed; {
		changed = false
		for _, e := range refs.Entries() {
			if !pointer.IsSubPointer(e.To, e.From, false) {
				continue
			}
			for pointer.IsSubPointer(e.From, generic, true) {
				generic = pointer.ToGeneric(e.To.Concat(generic[len(e.From):]), arrays)
				changed = true
			}
		}
	}
	return generic
}
