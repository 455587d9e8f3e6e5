// Package schema holds the compile state shared by the template and layout
// builders, and the Source and Document types loaders work with.
package schema

import (
	"encoding/json"
	"sort"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

// Kind tags the control template node built for a data location.
type Kind string

const (
	KindGroup Kind = "group"
	KindArray Kind = "array"
	KindLeaf  Kind = "leaf"
	KindRef   Kind = "$ref"
)

// Entry describes one generic data location.
type Entry struct {
	SchemaPointer   pointer.Pointer  `json:"schemaPointer"`
	SchemaType      string           `json:"schemaType,omitempty"`
	SchemaFormat    string           `json:"schemaFormat,omitempty"`
	TemplatePointer pointer.Pointer  `json:"templatePointer"`
	TemplateKind    Kind             `json:"templateType,omitempty"`
	Required        []string         `json:"required,omitempty"`
	IsRequired      bool             `json:"isRequired,omitempty"`
	Constraints     map[string][]any `json:"constraints,omitempty"`
	InputType       string           `json:"inputType,omitempty"`
	Disabled        bool             `json:"disabled,omitempty"`
	Bounds          *ArrayBounds     `json:"bounds,omitempty"`

	built bool
}

// Built reports whether a builder already described this entry.
func (e *Entry) Built() bool { return e != nil && e.built }

// MarkBuilt flags the entry as described. Later visits must not overwrite it.
func (e *Entry) MarkBuilt() { e.built = true }

// DataMap maps generic data pointers to their Entry.
type DataMap struct {
	entries map[string]*Entry
}

// NewDataMap returns an empty map.
func NewDataMap() *DataMap {
	return &DataMap{entries: map[string]*Entry{}}
}

// Get returns the entry stored at exactly p.
func (m *DataMap) Get(p pointer.Pointer) (*Entry, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.entries[p.String()]
	return e, ok
}

// Ensure returns the entry at p, creating an empty one when missing.
func (m *DataMap) Ensure(p pointer.Pointer) *Entry {
	if m.entries == nil {
		m.entries = map[string]*Entry{}
	}
	key := p.String()
	if e, ok := m.entries[key]; ok {
		return e
	}
	e := &Entry{}
	m.entries[key] = e
	return e
}

// Lookup resolves p to an entry, trying the pointer itself, then its generic
// form, then the recursion-shortened form. It also returns the key used.
func (m *DataMap) Lookup(p pointer.Pointer, refs *RecursiveRefMap, arrays pointer.ArrayMap) (*Entry, pointer.Pointer, bool) {
	if e, ok := m.Get(p); ok && e.SchemaType != "" {
		return e, p, true
	}
	generic := pointer.ToGeneric(p, arrays)
	if e, ok := m.Get(generic); ok && e.SchemaType != "" {
		return e, generic, true
	}
	short := RemoveRecursiveReferences(p, refs, arrays)
	if e, ok := m.Get(short); ok {
		return e, short, true
	}
	return nil, short, false
}

// Len returns the number of entries.
func (m *DataMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the sorted pointer keys.
func (m *DataMap) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON renders the map keyed by pointer string.
func (m *DataMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.entries)
}
